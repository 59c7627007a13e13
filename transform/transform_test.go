package transform

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edge-resizer/storage"
	"edge-resizer/validation"
)

func spec(t *testing.T, qs string) validation.SizeSpec {
	t.Helper()

	s, err := validation.ParseSizeSpec(qs)
	require.NoError(t, err)
	require.NotNil(t, s)

	return *s
}

func gradient(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	return img
}

func encodeWith(t *testing.T, contentType string, img image.Image) []byte {
	t.Helper()

	codec, ok := CodecFor(contentType)
	require.True(t, ok, contentType)

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, img, EncodeOptions{Quality: 90}))
	return buf.Bytes()
}

// exifBlock is a big-endian TIFF structure whose only IFD entry is the
// orientation tag.
func exifBlock(orientation uint16) []byte {
	var tiffData bytes.Buffer
	tiffData.WriteString("MM")
	_ = binary.Write(&tiffData, binary.BigEndian, uint16(0x002a))
	_ = binary.Write(&tiffData, binary.BigEndian, uint32(8))
	_ = binary.Write(&tiffData, binary.BigEndian, uint16(1))      // one IFD entry
	_ = binary.Write(&tiffData, binary.BigEndian, uint16(0x0112)) // orientation
	_ = binary.Write(&tiffData, binary.BigEndian, uint16(3))      // SHORT
	_ = binary.Write(&tiffData, binary.BigEndian, uint32(1))
	_ = binary.Write(&tiffData, binary.BigEndian, orientation)
	_ = binary.Write(&tiffData, binary.BigEndian, uint16(0))
	_ = binary.Write(&tiffData, binary.BigEndian, uint32(0)) // no next IFD
	return tiffData.Bytes()
}

// withOrientation inserts an EXIF APP1 segment carrying the orientation tag
// right after the JPEG SOI marker.
func withOrientation(t *testing.T, jpegBytes []byte, orientation uint16) []byte {
	t.Helper()
	require.True(t, bytes.HasPrefix(jpegBytes, []byte{0xff, 0xd8}))

	payload := append([]byte("Exif\x00\x00"), exifBlock(orientation)...)

	var out bytes.Buffer
	out.Write([]byte{0xff, 0xd8, 0xff, 0xe1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(jpegBytes[2:])
	return out.Bytes()
}

// pngWithOrientation inserts an eXIf chunk right after IHDR.
func pngWithOrientation(t *testing.T, pngBytes []byte, orientation uint16) []byte {
	t.Helper()
	require.True(t, bytes.HasPrefix(pngBytes, pngSignature))

	const ihdrEnd = 8 + 4 + 4 + 13 + 4
	payload := exifBlock(orientation)

	var chunk bytes.Buffer
	_ = binary.Write(&chunk, binary.BigEndian, uint32(len(payload)))
	chunk.WriteString("eXIf")
	chunk.Write(payload)
	_ = binary.Write(&chunk, binary.BigEndian, crc32.ChecksumIEEE(chunk.Bytes()[4:]))

	out := append([]byte(nil), pngBytes[:ihdrEnd]...)
	out = append(out, chunk.Bytes()...)
	return append(out, pngBytes[ihdrEnd:]...)
}

// tiffWithOrientation appends a copy of the first IFD with an orientation
// entry added and points the header at it. The encoder writes little-endian
// files and every other offset stays valid.
func tiffWithOrientation(t *testing.T, tiffBytes []byte, orientation uint16) []byte {
	t.Helper()
	require.Equal(t, "II", string(tiffBytes[:2]))

	order := binary.LittleEndian
	offset := order.Uint32(tiffBytes[4:8])
	count := int(order.Uint16(tiffBytes[offset:]))
	entries := tiffBytes[offset+2 : int(offset)+2+count*12]

	entry := make([]byte, 12)
	order.PutUint16(entry[0:], 0x0112)
	order.PutUint16(entry[2:], 3)
	order.PutUint32(entry[4:], 1)
	order.PutUint16(entry[8:], orientation)

	var ifd bytes.Buffer
	_ = binary.Write(&ifd, order, uint16(count+1))
	inserted := false
	for i := 0; i < count; i++ {
		current := entries[i*12 : (i+1)*12]
		if !inserted && order.Uint16(current) > 0x0112 {
			ifd.Write(entry)
			inserted = true
		}
		ifd.Write(current)
	}
	if !inserted {
		ifd.Write(entry)
	}
	_ = binary.Write(&ifd, order, uint32(0))

	out := append([]byte(nil), tiffBytes...)
	if len(out)%2 == 1 {
		out = append(out, 0)
	}
	order.PutUint32(out[4:8], uint32(len(out)))
	return append(out, ifd.Bytes()...)
}

func TestCoverSize(t *testing.T) {
	tests := []struct {
		name   string
		w0, h0 int
		qs     string
		w, h   int
	}{
		{"landscape into wide box", 4000, 3000, "w=200&h=100", 200, 150},
		{"landscape into tall box", 4000, 3000, "w=100&h=200", 267, 200},
		{"same aspect", 400, 200, "w=200&h=100", 200, 100},
		{"width only", 400, 300, "w=100", 100, 75},
		{"height only", 400, 300, "h=150", 200, 150},
		{"upscale", 10, 10, "w=30&h=20", 30, 30},
		{"rounds to nearest", 3, 3, "w=2", 2, 2},
		{"never collapses to zero", 1000, 1, "w=10", 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := CoverSize(tt.w0, tt.h0, spec(t, tt.qs))
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}

func TestCoverSize_NeverUndershoots(t *testing.T) {
	sources := [][2]int{{4000, 3000}, {3000, 4000}, {1920, 1080}, {333, 777}, {1, 1}, {999, 3}}
	boxes := []string{"w=200&h=100", "w=100&h=200", "w=1&h=1", "w=640&h=480", "w=77&h=1013"}

	for _, src := range sources {
		for _, box := range boxes {
			s := spec(t, box)
			w, h := CoverSize(src[0], src[1], s)
			assert.GreaterOrEqual(t, w, *s.Width, "%v %s", src, box)
			assert.GreaterOrEqual(t, h, *s.Height, "%v %s", src, box)
		}
	}
}

func TestCropRect(t *testing.T) {
	rect, ok := CropRect(200, 150, spec(t, "w=200&h=100"))
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 25, 200, 125), rect)

	rect, ok = CropRect(267, 200, spec(t, "w=100&h=200"))
	require.True(t, ok)
	assert.Equal(t, image.Rect(83, 0, 183, 200), rect)

	_, ok = CropRect(200, 100, spec(t, "w=200&h=100"))
	assert.False(t, ok)

	_, ok = CropRect(200, 150, spec(t, "w=200"))
	assert.False(t, ok)
}

func TestTransform_JPEGCoverAndCrop(t *testing.T) {
	asset := &storage.Object{
		Key:         "photos/a.jpg",
		ContentType: "image/jpeg",
		Body:        encodeWith(t, "image/jpeg", gradient(800, 600)),
	}
	original := append([]byte(nil), asset.Body...)

	result, err := New(DefaultQuality).Transform(asset, spec(t, "w=200&h=100"))
	require.NoError(t, err)

	assert.Equal(t, 200, result.Width)
	assert.Equal(t, 100, result.Height)
	assert.Equal(t, len(result.Body), result.Size)
	assert.Equal(t, original, asset.Body)

	decoded, err := jpeg.Decode(bytes.NewReader(result.Body))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), decoded.Bounds())
}

func TestTransform_PNGSingleDimension(t *testing.T) {
	asset := &storage.Object{ContentType: "image/png", Body: encodeWith(t, "image/png", gradient(300, 200))}

	result, err := New(DefaultQuality).Transform(asset, spec(t, "w=150"))
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(result.Body))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 150, 100), decoded.Bounds())

	result, err = New(DefaultQuality).Transform(asset, spec(t, "h=50"))
	require.NoError(t, err)
	assert.Equal(t, 75, result.Width)
	assert.Equal(t, 50, result.Height)
}

func TestTransform_AppliesOrientation(t *testing.T) {
	// stored 40x20, displayed rotated by 90 degrees
	body := withOrientation(t, encodeWith(t, "image/jpeg", gradient(40, 20)), 6)
	asset := &storage.Object{ContentType: "image/jpeg", Body: body}

	result, err := New(DefaultQuality).Transform(asset, spec(t, "w=10"))
	require.NoError(t, err)
	assert.Equal(t, 10, result.Width)
	assert.Equal(t, 20, result.Height)

	result, err = New(DefaultQuality).Transform(asset, spec(t, "w=10&h=10"))
	require.NoError(t, err)
	assert.Equal(t, 10, result.Width)
	assert.Equal(t, 10, result.Height)
}

func TestTransform_AppliesOrientationPerFormat(t *testing.T) {
	tests := []struct {
		contentType string
		tag         func(*testing.T, []byte, uint16) []byte
	}{
		{"image/tiff", tiffWithOrientation},
		{"image/png", pngWithOrientation},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			// stored 40x20, displayed rotated by 90 degrees
			body := tt.tag(t, encodeWith(t, tt.contentType, gradient(40, 20)), 6)
			asset := &storage.Object{ContentType: tt.contentType, Body: body}

			result, err := New(DefaultQuality).Transform(asset, spec(t, "w=10"))
			require.NoError(t, err)
			assert.Equal(t, 10, result.Width)
			assert.Equal(t, 20, result.Height)

			codec, _ := CodecFor(tt.contentType)
			decoded, err := codec.Decode(bytes.NewReader(body))
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 20, 40), decoded.Bounds())
		})
	}
}

func TestOrient(t *testing.T) {
	// top-left pixel is red, the rest black
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})

	tests := []struct {
		orientation int
		size        image.Point
		red         image.Point
	}{
		{orientationNormal, image.Pt(3, 2), image.Pt(0, 0)},
		{orientationFlipH, image.Pt(3, 2), image.Pt(2, 0)},
		{orientationRotate180, image.Pt(3, 2), image.Pt(2, 1)},
		{orientationFlipV, image.Pt(3, 2), image.Pt(0, 1)},
		{orientationTranspose, image.Pt(2, 3), image.Pt(0, 0)},
		{orientationRotate270, image.Pt(2, 3), image.Pt(1, 0)},
		{orientationTransverse, image.Pt(2, 3), image.Pt(1, 2)},
		{orientationRotate90, image.Pt(2, 3), image.Pt(0, 2)},
	}

	for _, tt := range tests {
		got := orient(src, tt.orientation)
		assert.Equal(t, tt.size, got.Bounds().Size(), "orientation %d", tt.orientation)

		r, _, _, _ := got.At(tt.red.X, tt.red.Y).RGBA()
		assert.Equal(t, uint32(0xffff), r, "orientation %d", tt.orientation)
	}
}

func TestExifOrientation_Containers(t *testing.T) {
	block := exifBlock(8)

	var riff bytes.Buffer
	riff.WriteString("RIFF")
	_ = binary.Write(&riff, binary.LittleEndian, uint32(0))
	riff.WriteString("WEBPVP8X")
	_ = binary.Write(&riff, binary.LittleEndian, uint32(10))
	riff.Write(make([]byte, 10))
	riff.WriteString("ICCP")
	_ = binary.Write(&riff, binary.LittleEndian, uint32(3))
	riff.Write([]byte{1, 2, 3, 0}) // odd chunk plus padding
	riff.WriteString("EXIF")
	_ = binary.Write(&riff, binary.LittleEndian, uint32(len(block)))
	riff.Write(block)

	assert.Equal(t, 8, exifOrientation(webpExif(riff.Bytes())))
	assert.Equal(t, 8, exifOrientation(append([]byte("Exif\x00\x00"), block...)))
	assert.Equal(t, orientationNormal, exifOrientation(webpExif([]byte("RIFF\x00\x00\x00\x00WEBP"))))
	assert.Equal(t, orientationNormal, exifOrientation(pngExif(encodeWith(t, "image/png", gradient(4, 4)))))
	assert.Equal(t, orientationNormal, exifOrientation(tiffExif(encodeWith(t, "image/tiff", gradient(4, 4)))))
	assert.Equal(t, orientationNormal, exifOrientation(exifBlock(9)))
	assert.Equal(t, orientationNormal, exifOrientation([]byte("MM\x00")))
}

func TestTransform_PreservesFormat(t *testing.T) {
	for _, contentType := range []string{"image/gif", "image/bmp", "image/tiff", "image/webp", "image/jpg"} {
		t.Run(contentType, func(t *testing.T) {
			asset := &storage.Object{ContentType: contentType, Body: encodeWith(t, contentType, gradient(40, 30))}

			result, err := New(DefaultQuality).Transform(asset, spec(t, "w=20&h=20"))
			require.NoError(t, err)

			codec, _ := CodecFor(contentType)
			decoded, err := codec.Decode(bytes.NewReader(result.Body))
			require.NoError(t, err)
			assert.Equal(t, 20, decoded.Bounds().Dx())
			assert.Equal(t, 20, decoded.Bounds().Dy())
		})
	}
}

func TestTransform_Errors(t *testing.T) {
	tr := New(DefaultQuality)

	_, err := tr.Transform(&storage.Object{ContentType: "image/jpeg", Body: []byte("not an image")}, spec(t, "w=10"))
	var transformErr *Error
	require.True(t, errors.As(err, &transformErr))
	assert.Equal(t, "decode", transformErr.Op)

	_, err = tr.Transform(&storage.Object{ContentType: "image/svg+xml", Body: []byte("<svg/>")}, spec(t, "w=10"))
	require.True(t, errors.As(err, &transformErr))

	pngBody := encodeWith(t, "image/png", gradient(4, 4))
	_, err = tr.Transform(&storage.Object{ContentType: "image/png", Body: pngBody}, validation.SizeSpec{})
	require.True(t, errors.As(err, &transformErr))
	assert.Equal(t, "resize", transformErr.Op)
}

func TestEveryRasterMimeHasCodec(t *testing.T) {
	for _, contentType := range validation.RasterMimeTypes() {
		_, ok := CodecFor(contentType)
		assert.True(t, ok, contentType)
	}
}

func TestNewClampsQuality(t *testing.T) {
	assert.Equal(t, DefaultQuality, New(0).Quality)
	assert.Equal(t, DefaultQuality, New(101).Quality)
	assert.Equal(t, 80, New(80).Quality)
}
