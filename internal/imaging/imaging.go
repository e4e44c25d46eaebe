// Package imaging turns uploaded pictures into item icons.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// IconSize is the width and height of a stored item icon.
const IconSize = 256

// MaxUploadSize is the largest accepted upload in bytes.
const MaxUploadSize = 5 << 20

// IconMIME is the MIME type of every stored icon.
const IconMIME = "image/png"

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// ErrTooLarge is returned for uploads over MaxUploadSize.
var ErrTooLarge = errors.New("image too large")

// Icon is a processed item icon.
type Icon struct {
	Data []byte
	MIME string
}

// ProcessIcon validates an uploaded image by sniffing its bytes and fits it
// into an IconSize square. The aspect ratio is kept and the rest of the
// square stays transparent. Images smaller than the square are centered, not
// enlarged.
func ProcessIcon(r io.Reader) (*Icon, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}

	detected := http.DetectContentType(data)
	if !allowedMIME[detected] {
		return nil, fmt.Errorf("unsupported image format: %s (only JPEG, PNG and GIF accepted)", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, fit(img, IconSize)); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return &Icon{Data: buf.Bytes(), MIME: IconMIME}, nil
}

// fit draws img centered on a transparent size x size canvas, downscaling it
// with Catmull-Rom interpolation when it does not fit.
func fit(img image.Image, size int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > size || h > size {
		if w > h {
			w, h = size, max(1, h*size/w)
		} else {
			w, h = max(1, w*size/h), size
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	x0, y0 := (size-w)/2, (size-h)/2
	draw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
	image.RegisterFormat("gif", "GIF8?a", gif.Decode, gif.DecodeConfig)
}
