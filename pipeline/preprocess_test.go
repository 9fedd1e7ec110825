package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestFitImageDownscales(t *testing.T) {
	data := encodePNG(t, 100, 50)

	scaled, err := fitImage(data, 40)
	if err != nil {
		t.Fatalf("fitImage() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(scaled))
	if err != nil {
		t.Fatalf("decode scaled image: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 40 || b.Dy() != 20 {
		t.Fatalf("scaled to %dx%d, want 40x20", b.Dx(), b.Dy())
	}
}

func TestFitImageKeepsSmallImages(t *testing.T) {
	data := encodePNG(t, 30, 20)

	got, err := fitImage(data, 40)
	if err != nil {
		t.Fatalf("fitImage() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("small image was re-encoded")
	}
}

func TestFitImageDisabled(t *testing.T) {
	data := []byte("not an image")
	got, err := fitImage(data, 0)
	if err != nil {
		t.Fatalf("fitImage() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("disabled fit changed the data")
	}
}

func TestFitImageRejectsGarbage(t *testing.T) {
	if _, err := fitImage([]byte("not an image"), 40); err == nil {
		t.Fatalf("expected decode error")
	}
}
