package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func createTestJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTestPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func decode(t *testing.T, icon *Icon) image.Image {
	t.Helper()
	if icon.MIME != IconMIME {
		t.Fatalf("expected %s, got %s", IconMIME, icon.MIME)
	}
	img, err := png.Decode(bytes.NewReader(icon.Data))
	if err != nil {
		t.Fatalf("decoding icon: %v", err)
	}
	if b := img.Bounds(); b.Dx() != IconSize || b.Dy() != IconSize {
		t.Fatalf("expected %dx%d icon, got %dx%d", IconSize, IconSize, b.Dx(), b.Dy())
	}
	return img
}

func TestProcessIconJPEG(t *testing.T) {
	icon, err := ProcessIcon(bytes.NewReader(createTestJPEG(100, 100)))
	if err != nil {
		t.Fatalf("ProcessIcon JPEG: %v", err)
	}
	decode(t, icon)
}

func TestProcessIconPNG(t *testing.T) {
	icon, err := ProcessIcon(bytes.NewReader(createTestPNG(100, 100)))
	if err != nil {
		t.Fatalf("ProcessIcon PNG: %v", err)
	}
	decode(t, icon)
}

func TestProcessIconDownscaleKeepsAspect(t *testing.T) {
	icon, err := ProcessIcon(bytes.NewReader(createTestPNG(1024, 512)))
	if err != nil {
		t.Fatalf("ProcessIcon large image: %v", err)
	}
	img := decode(t, icon)

	// 1024x512 becomes 256x128, centered vertically.
	if _, _, _, a := img.At(IconSize/2, 10).RGBA(); a != 0 {
		t.Errorf("expected transparent padding above the image, alpha %d", a)
	}
	if _, _, b, a := img.At(IconSize/2, IconSize/2).RGBA(); a == 0 || b == 0 {
		t.Error("expected the image in the middle of the icon")
	}
}

func TestProcessIconSmallImageCentered(t *testing.T) {
	icon, err := ProcessIcon(bytes.NewReader(createTestPNG(50, 50)))
	if err != nil {
		t.Fatalf("ProcessIcon small image: %v", err)
	}
	img := decode(t, icon)

	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Errorf("small image should not be enlarged, corner alpha %d", a)
	}
	if _, _, _, a := img.At(IconSize/2, IconSize/2).RGBA(); a == 0 {
		t.Error("expected the image in the middle of the icon")
	}
}

func TestProcessIconInvalidFormat(t *testing.T) {
	if _, err := ProcessIcon(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestProcessIconTooLarge(t *testing.T) {
	data := make([]byte, MaxUploadSize+10)
	if _, err := ProcessIcon(bytes.NewReader(data)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}
