package transform

import (
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"edge-resizer/validation"
)

// EncodeOptions carries the knobs a codec may honour.
type EncodeOptions struct {
	Quality int
}

// Codec decodes and re-encodes one image format. Decode returns the image
// upright when the format carries an EXIF orientation. Each format decides
// which EncodeOptions it supports.
type Codec struct {
	Format string
	Decode func(r io.Reader) (image.Image, error)
	Encode func(w io.Writer, img image.Image, opts EncodeOptions) error
}

var jpegCodec = &Codec{
	Format: "jpeg",
	Decode: func(r io.Reader) (image.Image, error) {
		return imaging.Decode(r, imaging.AutoOrientation(true))
	},
	Encode: func(w io.Writer, img image.Image, opts EncodeOptions) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: opts.Quality})
	},
}

var codecs = map[string]*Codec{
	"image/jpeg": jpegCodec,
	"image/jpg":  jpegCodec,

	"image/png": {
		Format: "png",
		Decode: orientedDecoder(png.Decode, pngExif),
		Encode: func(w io.Writer, img image.Image, _ EncodeOptions) error {
			pngEncoder := png.Encoder{CompressionLevel: png.BestCompression}
			return pngEncoder.Encode(w, img)
		},
	},

	"image/gif": {
		Format: "gif",
		Decode: gif.Decode,
		Encode: func(w io.Writer, img image.Image, _ EncodeOptions) error {
			return gif.Encode(w, img, &gif.Options{NumColors: 256})
		},
	},

	"image/bmp": {
		Format: "bmp",
		Decode: bmp.Decode,
		Encode: func(w io.Writer, img image.Image, _ EncodeOptions) error {
			return bmp.Encode(w, img)
		},
	},

	"image/tiff": {
		Format: "tiff",
		Decode: orientedDecoder(tiff.Decode, tiffExif),
		Encode: func(w io.Writer, img image.Image, _ EncodeOptions) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
		},
	},

	"image/webp": {
		Format: "webp",
		Decode: orientedDecoder(func(r io.Reader) (image.Image, error) {
			return webp.Decode(r, &decoder.Options{})
		}, webpExif),
		Encode: func(w io.Writer, img image.Image, opts EncodeOptions) error {
			options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(opts.Quality))
			if err != nil {
				return err
			}
			return webp.Encode(w, img, options)
		},
	},
}

// CodecFor looks up the codec for a content type.
func CodecFor(contentType string) (*Codec, bool) {
	codec, ok := codecs[validation.NormalizeMime(contentType)]
	return codec, ok
}
