package vision

import (
	"context"
	"fmt"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/wudi/doctext/document"
	"github.com/wudi/doctext/ocr"
)

// maxImageBytes is the upper bound Cloud Vision accepts for an inline image.
const maxImageBytes = 20 * 1024 * 1024

// Engine implements ocr.Engine using the Google Cloud Vision API with
// document text detection.
type Engine struct {
	client *vision.ImageAnnotatorClient
}

// New creates a Vision-backed OCR engine with credentials from the
// environment. It accepts either inline GOOGLE_CREDENTIALS JSON, a
// GOOGLE_APPLICATION_CREDENTIALS file path, or application default
// credentials, in that order.
func New(ctx context.Context) (*Engine, error) {
	var client *vision.ImageAnnotatorClient
	var err error

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, fmt.Errorf("create vision client with GOOGLE_CREDENTIALS: %w", err)
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, fmt.Errorf("create vision client with GOOGLE_APPLICATION_CREDENTIALS: %w", err)
		}
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, document.NewError("vision.new", "", document.ErrOCRUnavailable, "no Google credentials found in environment")
		}
	}

	return &Engine{client: client}, nil
}

// NewWithClient creates a Vision-backed engine with an explicit client
// (for testing).
func NewWithClient(client *vision.ImageAnnotatorClient) *Engine {
	return &Engine{client: client}
}

func (e *Engine) Name() string { return "vision" }

// Available reports whether the engine holds a usable client.
func (e *Engine) Available() error {
	if e.client == nil {
		return document.NewError("vision.available", "", document.ErrOCRUnavailable, "vision client not initialized")
	}
	return nil
}

// Recognize submits a single page image for document text detection.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if err := e.Available(); err != nil {
		return ocr.Result{}, err
	}
	if len(in.Image) > maxImageBytes {
		return ocr.Result{}, fmt.Errorf("image for %s exceeds %d bytes", in.ID, maxImageBytes)
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: in.Image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: imageContext(in.Languages),
			},
		},
	}

	resp, err := e.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("vision api call for %s: %w", in.ID, err)
	}
	if len(resp.Responses) == 0 {
		return ocr.Result{}, fmt.Errorf("no response from vision api for %s", in.ID)
	}

	res, err := parseResponse(resp.Responses[0])
	if err != nil {
		return ocr.Result{}, fmt.Errorf("vision response for %s: %w", in.ID, err)
	}
	res.InputID = in.ID
	return res, nil
}

// Close releases the underlying Vision client.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

func imageContext(langs []string) *visionpb.ImageContext {
	if len(langs) == 0 {
		return nil
	}
	return &visionpb.ImageContext{LanguageHints: langs}
}

// parseResponse flattens a Vision annotation into plain text plus word-level
// tokens with confidences. An image with no detectable text yields an empty
// result, not an error.
func parseResponse(r *visionpb.AnnotateImageResponse) (ocr.Result, error) {
	if r.Error != nil {
		return ocr.Result{}, fmt.Errorf("vision api error: %s", r.Error.Message)
	}

	fta := r.FullTextAnnotation
	if fta == nil {
		return ocr.Result{}, nil
	}

	var words []ocr.Word
	for _, page := range fta.Pages {
		for _, block := range page.Blocks {
			for _, para := range block.Paragraphs {
				for _, w := range para.Words {
					var sb strings.Builder
					for _, sym := range w.Symbols {
						sb.WriteString(sym.Text)
					}
					words = append(words, ocr.Word{
						Text:       sb.String(),
						Bounds:     boundsOf(w.BoundingBox),
						Confidence: float64(w.Confidence),
					})
				}
			}
		}
	}

	res := ocr.Result{
		PlainText:      strings.TrimSpace(fta.Text),
		Words:          words,
		MeanConfidence: ocr.MeanConfidence(words),
	}
	if len(r.TextAnnotations) > 0 {
		res.Language = r.TextAnnotations[0].Locale
	}
	return res, nil
}

func boundsOf(poly *visionpb.BoundingPoly) ocr.Region {
	if poly == nil || len(poly.Vertices) == 0 {
		return ocr.Region{}
	}
	minX, minY := poly.Vertices[0].X, poly.Vertices[0].Y
	maxX, maxY := minX, minY
	for _, v := range poly.Vertices[1:] {
		if v.X < minX {
			minX = v.X
		}
		if v.Y < minY {
			minY = v.Y
		}
		if v.X > maxX {
			maxX = v.X
		}
		if v.Y > maxY {
			maxY = v.Y
		}
	}
	return ocr.Region{
		X:      float64(minX),
		Y:      float64(minY),
		Width:  float64(maxX - minX),
		Height: float64(maxY - minY),
	}
}
