package vision

import (
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"
)

// ChannelOrder selects how colour channels are laid out in the last tensor axis.
type ChannelOrder int

const (
	ChannelRGB ChannelOrder = iota
	// ChannelBGR matches models trained on OpenCV-decoded frames.
	ChannelBGR
)

func ParseChannelOrder(s string) (ChannelOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rgb":
		return ChannelRGB, nil
	case "bgr":
		return ChannelBGR, nil
	}
	return ChannelRGB, fmt.Errorf("unknown channel order %q", s)
}

func (o ChannelOrder) String() string {
	if o == ChannelBGR {
		return "bgr"
	}
	return "rgb"
}

// Preprocess decodes data and converts it into the model input tensor.
func Preprocess(data []byte, order ChannelOrder) (*Tensor, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return PreprocessImage(img, order), nil
}

// PreprocessImage resizes img to 256x256 with bilinear interpolation and scales
// 8-bit channels to [0,1], producing a (1,256,256,3) tensor. Alpha is discarded.
func PreprocessImage(img image.Image, order ChannelOrder) *Tensor {
	src := opaque(img)

	dst := image.NewNRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	t := NewTensor()
	i := 0
	for y := 0; y < InputSize; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < InputSize; x++ {
			r := float32(row[x*4]) / 255.0
			g := float32(row[x*4+1]) / 255.0
			b := float32(row[x*4+2]) / 255.0
			if order == ChannelBGR {
				r, b = b, r
			}
			t.Data[i] = r
			t.Data[i+1] = g
			t.Data[i+2] = b
			i += Channels
		}
	}
	return t
}

// opaque copies img into an NRGBA grid anchored at the origin with alpha forced to 255.
func opaque(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		// Straight copy keeps the colour of translucent pixels intact.
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Stride:(y+1)*out.Stride], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	} else {
		draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	}
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}
