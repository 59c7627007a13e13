package transform

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"edge-resizer/pool"
	"edge-resizer/storage"
	"edge-resizer/validation"
)

const DefaultQuality = 95

// Error reports a decode, resize or encode failure.
type Error struct {
	Op          string
	ContentType string
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform %s (%s): %v", e.Op, e.ContentType, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result is an encoded derived image.
type Result struct {
	Body   []byte
	Size   int
	Width  int
	Height int
}

// Transformer fills a requested box and re-encodes in the source format.
type Transformer struct {
	Quality int
}

func New(quality int) *Transformer {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}

	return &Transformer{Quality: quality}
}

// Transform decodes asset, cover-scales and center-crops it to spec and
// encodes the result. asset.Body is only read.
func (t *Transformer) Transform(asset *storage.Object, spec validation.SizeSpec) (*Result, error) {
	codec, ok := CodecFor(asset.ContentType)
	if !ok {
		return nil, &Error{Op: "decode", ContentType: asset.ContentType, Err: fmt.Errorf("no codec registered")}
	}

	if !spec.Active() {
		return nil, &Error{Op: "resize", ContentType: asset.ContentType, Err: fmt.Errorf("size spec has no dimension")}
	}

	img, err := codec.Decode(bytes.NewReader(asset.Body))
	if err != nil {
		return nil, &Error{Op: "decode", ContentType: asset.ContentType, Err: err}
	}

	filled, err := Fill(img, spec)
	if err != nil {
		return nil, &Error{Op: "resize", ContentType: asset.ContentType, Err: err}
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	if err := codec.Encode(buf, filled, EncodeOptions{Quality: t.Quality}); err != nil {
		return nil, &Error{Op: "encode", ContentType: asset.ContentType, Err: err}
	}

	bounds := filled.Bounds()
	body := pool.CopyBytes(buf)

	return &Result{
		Body:   body,
		Size:   len(body),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// Fill resizes img so that it covers spec and crops the overflow around the
// center. With a single dimension the other one follows the aspect ratio.
func Fill(img image.Image, spec validation.SizeSpec) (image.Image, error) {
	bounds := img.Bounds()
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return nil, fmt.Errorf("empty source image %dx%d", bounds.Dx(), bounds.Dy())
	}

	width, height := CoverSize(bounds.Dx(), bounds.Dy(), spec)
	resized := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)

	if rect, ok := CropRect(width, height, spec); ok {
		return imaging.Crop(resized, rect), nil
	}

	return resized, nil
}

// CoverSize returns the uniformly scaled dimensions of a w0 x h0 image.
func CoverSize(w0, h0 int, spec validation.SizeSpec) (int, int) {
	ratio := 1.0

	switch {
	case spec.Width != nil && spec.Height != nil:
		ratio = math.Max(float64(*spec.Width)/float64(w0), float64(*spec.Height)/float64(h0))
	case spec.Width != nil:
		ratio = float64(*spec.Width) / float64(w0)
	case spec.Height != nil:
		ratio = float64(*spec.Height) / float64(h0)
	}

	return scaleDimension(w0, ratio), scaleDimension(h0, ratio)
}

func scaleDimension(n int, ratio float64) int {
	return max(1, int(math.Round(float64(n)*ratio)))
}

// CropRect is the centered target box inside a resized image. It reports
// false when no crop is needed.
func CropRect(resizedW, resizedH int, spec validation.SizeSpec) (image.Rectangle, bool) {
	if spec.Width == nil || spec.Height == nil {
		return image.Rectangle{}, false
	}

	targetW, targetH := *spec.Width, *spec.Height
	if resizedW == targetW && resizedH == targetH {
		return image.Rectangle{}, false
	}

	startX := (resizedW - targetW) / 2
	startY := (resizedH - targetH) / 2

	return image.Rect(startX, startY, startX+targetW, startY+targetH), true
}
