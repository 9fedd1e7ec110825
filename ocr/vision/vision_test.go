package vision

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"

	"github.com/wudi/doctext/document"
	"github.com/wudi/doctext/ocr"
)

func word(text string, conf float32, verts ...*visionpb.Vertex) *visionpb.Word {
	syms := make([]*visionpb.Symbol, 0, len(text))
	for _, r := range text {
		syms = append(syms, &visionpb.Symbol{Text: string(r)})
	}
	return &visionpb.Word{
		Symbols:     syms,
		Confidence:  conf,
		BoundingBox: &visionpb.BoundingPoly{Vertices: verts},
	}
}

func TestParseResponse(t *testing.T) {
	resp := &visionpb.AnnotateImageResponse{
		FullTextAnnotation: &visionpb.TextAnnotation{
			Text: "Hello World\n",
			Pages: []*visionpb.Page{
				{
					Blocks: []*visionpb.Block{
						{
							Paragraphs: []*visionpb.Paragraph{
								{
									Words: []*visionpb.Word{
										word("Hello", 0.98, &visionpb.Vertex{X: 10, Y: 12}, &visionpb.Vertex{X: 60, Y: 12}, &visionpb.Vertex{X: 60, Y: 30}, &visionpb.Vertex{X: 10, Y: 30}),
										word("World", 0.94, &visionpb.Vertex{X: 70, Y: 12}, &visionpb.Vertex{X: 120, Y: 30}),
									},
								},
							},
						},
					},
				},
			},
		},
		TextAnnotations: []*visionpb.EntityAnnotation{
			{Locale: "en", Description: "Hello World"},
		},
	}

	res, err := parseResponse(resp)
	if err != nil {
		t.Fatalf("parseResponse() error = %v", err)
	}
	if res.PlainText != "Hello World" {
		t.Fatalf("unexpected text: %q", res.PlainText)
	}
	if len(res.Words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(res.Words))
	}
	if res.Words[0].Text != "Hello" || res.Words[1].Text != "World" {
		t.Fatalf("unexpected words: %+v", res.Words)
	}
	wantConf := (0.98 + 0.94) / 2
	if diff := res.MeanConfidence - wantConf; diff > 0.001 || diff < -0.001 {
		t.Fatalf("mean confidence = %v, want %v", res.MeanConfidence, wantConf)
	}
	if res.Language != "en" {
		t.Fatalf("unexpected language: %s", res.Language)
	}
	b := res.Words[0].Bounds
	if b.X != 10 || b.Y != 12 || b.Width != 50 || b.Height != 18 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
}

func TestParseResponseNoText(t *testing.T) {
	res, err := parseResponse(&visionpb.AnnotateImageResponse{})
	if err != nil {
		t.Fatalf("parseResponse() error = %v", err)
	}
	if res.PlainText != "" || len(res.Words) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestParseResponseAPIError(t *testing.T) {
	resp := &visionpb.AnnotateImageResponse{
		Error: &rpcstatus.Status{Message: "quota exceeded"},
	}
	if _, err := parseResponse(resp); err == nil {
		t.Fatalf("expected error for API error response")
	}
}

func TestBoundsOfEmptyPoly(t *testing.T) {
	if got := boundsOf(nil); !got.IsEmpty() {
		t.Fatalf("expected empty region, got %+v", got)
	}
	if got := boundsOf(&visionpb.BoundingPoly{}); !got.IsEmpty() {
		t.Fatalf("expected empty region, got %+v", got)
	}
}

func TestEngineUnavailableWithoutClient(t *testing.T) {
	e := NewWithClient(nil)
	err := e.Available()
	if !errors.Is(err, document.ErrOCRUnavailable) {
		t.Fatalf("Available() error = %v, want ErrOCRUnavailable", err)
	}
	if _, err := e.Recognize(context.Background(), ocr.PageInput(1, []byte("img"))); !errors.Is(err, document.ErrOCRUnavailable) {
		t.Fatalf("Recognize() error = %v, want ErrOCRUnavailable", err)
	}
}

func TestEngineName(t *testing.T) {
	if got := (&Engine{}).Name(); got != "vision" {
		t.Fatalf("Name() = %s, want vision", got)
	}
}
