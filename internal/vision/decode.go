package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/jdeng/goheif"
)

// Format is the name an image decoder registered itself under.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatHEIC Format = "heic"
)

// DefaultMaxPixels bounds the decoded size of an upload. Decoders allocate the
// whole pixel buffer from the header, so the byte limit alone does not bound memory.
const DefaultMaxPixels = 40_000_000

var (
	ErrImageTooLarge     = errors.New("image dimensions too large")
	ErrEmptyImage        = errors.New("empty image")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrCorruptImage      = errors.New("corrupt image")
)

func (f Format) Supported() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatHEIC:
		return true
	}
	return false
}

// Decode is DecodeLimit with DefaultMaxPixels.
func Decode(data []byte) (image.Image, Format, error) {
	return DecodeLimit(data, DefaultMaxPixels)
}

// DecodeLimit sniffs the format from the content, rejects anything outside
// JPEG/PNG/HEIC or larger than maxPixels, and only then decodes the pixels.
// The declared filename plays no part.
func DecodeLimit(data []byte, maxPixels int64) (image.Image, Format, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}

	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnsupportedFormat
		}
		return nil, Format(name), fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}
	format := Format(name)
	if !format.Supported() {
		return nil, format, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, format, fmt.Errorf("%w: %s has zero size", ErrCorruptImage, name)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, format, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("%w: %s: %v", ErrCorruptImage, name, err)
	}
	return img, format, nil
}

// Validate reports the detected format when data is a decodable JPEG, PNG or HEIC image.
func Validate(data []byte) (Format, error) {
	_, format, err := Decode(data)
	return format, err
}
