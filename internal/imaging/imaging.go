// Package imaging decodes uploaded photos and prepares face crops for the embedding model.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// FaceSize is the square input size of the FaceNet model.
const FaceSize = 160

const jpegQuality = 95

var (
	// ErrDecode is returned for payloads that are not a supported image.
	ErrDecode = errors.New("invalid image")
	// ErrEmptyCrop is returned when a face box lies entirely outside the image.
	ErrEmptyCrop = errors.New("face box outside image")
)

// DecodeBase64 decodes an image sent as base64 text. A data URL prefix
// ("data:image/jpeg;base64,") and embedded whitespace are accepted.
func DecodeBase64(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding,
	} {
		if data, err := enc.DecodeString(s); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("%w: not valid base64", ErrDecode)
}

// Decode decodes JPEG, PNG, GIF, BMP or WebP data.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, format, nil
}

// Crop copies the part of img inside box, clamped to the image bounds.
func Crop(img image.Image, box BoundingBox) (image.Image, error) {
	r, ok := box.ClampTo(img.Bounds())
	if !ok {
		return nil, fmt.Errorf("%w: %+v not in %v", ErrEmptyCrop, box, img.Bounds())
	}

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(dst, image.Point{}, img, r, draw.Src, nil)
	return dst, nil
}

// Normalize scales img to a size x size RGB image and encodes it as JPEG.
// The aspect ratio is not kept; the model expects a square input.
func Normalize(img image.Image, size int) ([]byte, error) {
	if size <= 0 {
		size = FaceSize
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	return EncodeJPEG(dst)
}

// EncodeJPEG encodes img at the quality used for model input.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
