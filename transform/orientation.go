package transform

import (
	"bytes"
	"encoding/binary"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

const orientationTag = 0x0112

// EXIF orientation values, numbered as in the TIFF 6.0 Orientation tag.
const (
	orientationNormal     = 1
	orientationFlipH      = 2
	orientationRotate180  = 3
	orientationFlipV      = 4
	orientationTranspose  = 5
	orientationRotate270  = 6
	orientationTransverse = 7
	orientationRotate90   = 8
)

var (
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
	exifHeader   = []byte("Exif\x00\x00")
)

// orientedDecoder wraps decode so the decoded image is turned upright using
// the orientation tag that locate finds in the raw file.
func orientedDecoder(decode func(io.Reader) (image.Image, error), locate func([]byte) []byte) func(io.Reader) (image.Image, error) {
	return func(r io.Reader) (image.Image, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}

		img, err := decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}

		return orient(img, exifOrientation(locate(data))), nil
	}
}

// orient applies the transform that undoes orientation.
func orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case orientationFlipH:
		return imaging.FlipH(img)
	case orientationRotate180:
		return imaging.Rotate180(img)
	case orientationFlipV:
		return imaging.FlipV(img)
	case orientationTranspose:
		return imaging.Transpose(img)
	case orientationRotate270:
		return imaging.Rotate270(img)
	case orientationTransverse:
		return imaging.Transverse(img)
	case orientationRotate90:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// exifOrientation reads the Orientation tag from the first IFD of TIFF
// structured data. Anything unreadable counts as orientationNormal.
func exifOrientation(data []byte) int {
	data = bytes.TrimPrefix(data, exifHeader)
	if len(data) < 8 {
		return orientationNormal
	}

	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return orientationNormal
	}
	if order.Uint16(data[2:4]) != 42 {
		return orientationNormal
	}

	offset := int(order.Uint32(data[4:8]))
	if offset < 8 || offset+2 > len(data) {
		return orientationNormal
	}

	count := int(order.Uint16(data[offset:]))
	entries := data[offset+2:]
	for i := 0; i < count && (i+1)*12 <= len(entries); i++ {
		entry := entries[i*12 : (i+1)*12]
		if order.Uint16(entry[0:2]) != orientationTag {
			continue
		}

		// SHORT, stored left-justified in the value field
		if order.Uint16(entry[2:4]) != 3 {
			return orientationNormal
		}
		value := int(order.Uint16(entry[8:10]))
		if value < orientationNormal || value > orientationRotate90 {
			return orientationNormal
		}
		return value
	}

	return orientationNormal
}

// tiffExif returns the file itself: a TIFF is its own EXIF container.
func tiffExif(data []byte) []byte {
	return data
}

// pngExif returns the payload of the eXIf chunk, if any.
func pngExif(data []byte) []byte {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil
	}

	for rest := data[len(pngSignature):]; len(rest) >= 12; {
		length := int(binary.BigEndian.Uint32(rest[0:4]))
		kind := string(rest[4:8])
		if length < 0 || 12+length > len(rest) {
			return nil
		}

		switch kind {
		case "eXIf":
			return rest[8 : 8+length]
		case "IEND":
			return nil
		}
		rest = rest[12+length:]
	}

	return nil
}

// webpExif returns the payload of the EXIF chunk of an extended WebP file.
func webpExif(data []byte) []byte {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return nil
	}

	for rest := data[12:]; len(rest) >= 8; {
		length := int(binary.LittleEndian.Uint32(rest[4:8]))
		if length < 0 || 8+length > len(rest) {
			return nil
		}

		if string(rest[0:4]) == "EXIF" {
			return rest[8 : 8+length]
		}

		// chunks are padded to an even size
		next := 8 + length + length&1
		if next > len(rest) {
			return nil
		}
		rest = rest[next:]
	}

	return nil
}
