package vision

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestPreprocessShapeAndRange(t *testing.T) {
	inputs := map[string][]byte{
		"jpeg 500x300": encodeJPEG(t, gradient(500, 300)),
		"png 31x977":   encodePNG(t, gradient(31, 977)),
		"png 1x1":      encodePNG(t, gradient(1, 1)),
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			tensor, err := Preprocess(data, ChannelRGB)
			if err != nil {
				t.Fatalf("Preprocess() error = %v", err)
			}
			if tensor.Shape != [4]int{1, 256, 256, 3} {
				t.Fatalf("shape = %v", tensor.Shape)
			}
			if len(tensor.Data) != 256*256*3 {
				t.Fatalf("len = %d", len(tensor.Data))
			}
			if err := tensor.Validate(); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
		})
	}
}

func TestPreprocessDeterministic(t *testing.T) {
	data := encodeJPEG(t, gradient(500, 300))

	first, err := Preprocess(data, ChannelRGB)
	if err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}
	for run := 0; run < 3; run++ {
		again, err := Preprocess(data, ChannelRGB)
		if err != nil {
			t.Fatalf("Preprocess() error = %v", err)
		}
		for i := range first.Data {
			if math.Float32bits(first.Data[i]) != math.Float32bits(again.Data[i]) {
				t.Fatalf("run %d differs at %d: %v vs %v", run, i, first.Data[i], again.Data[i])
			}
		}
	}
}

func TestPreprocessSolidColourAndChannelOrder(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 50))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 255, 128, 0, 255
	}

	rgb := PreprocessImage(img, ChannelRGB)
	bgr := PreprocessImage(img, ChannelBGR)
	for _, p := range [][2]int{{0, 0}, {128, 128}, {255, 255}} {
		x, y := p[0], p[1]
		if got := rgb.At(x, y, 0); got != 1 {
			t.Fatalf("rgb red at %v = %v", p, got)
		}
		if got := rgb.At(x, y, 1); got != float32(128)/255 {
			t.Fatalf("rgb green at %v = %v", p, got)
		}
		if got := rgb.At(x, y, 2); got != 0 {
			t.Fatalf("rgb blue at %v = %v", p, got)
		}
		if bgr.At(x, y, 0) != rgb.At(x, y, 2) || bgr.At(x, y, 2) != rgb.At(x, y, 0) {
			t.Fatalf("bgr should swap red and blue at %v", p)
		}
	}
}

func TestPreprocessDiscardsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 10})
		}
	}
	tensor := PreprocessImage(img, ChannelRGB)
	if got := tensor.At(5, 5, 0); got != float32(200)/255 {
		t.Fatalf("red = %v, alpha should not darken colour", got)
	}
}

func TestPreprocessRejectsGarbage(t *testing.T) {
	if _, err := Preprocess([]byte("garbage!!!"), ChannelRGB); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseChannelOrder(t *testing.T) {
	tests := map[string]ChannelOrder{"": ChannelRGB, "rgb": ChannelRGB, "BGR": ChannelBGR, " bgr ": ChannelBGR}
	for in, want := range tests {
		got, err := ParseChannelOrder(in)
		if err != nil || got != want {
			t.Errorf("ParseChannelOrder(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseChannelOrder("hsv"); err == nil {
		t.Error("expected error for hsv")
	}
}

func TestTensorValidate(t *testing.T) {
	good := NewTensor()
	if err := good.Validate(); err != nil {
		t.Fatalf("zero tensor should be valid: %v", err)
	}

	var nilTensor *Tensor
	bad := []*Tensor{
		nilTensor,
		{Shape: [4]int{1, 224, 224, 3}, Data: make([]float32, 224*224*3)},
		{Shape: InputShape, Data: make([]float32, 10)},
	}
	outOfRange := NewTensor()
	outOfRange.Data[7] = 1.5
	nan := NewTensor()
	nan.Data[0] = float32(math.NaN())
	bad = append(bad, outOfRange, nan)

	for i, tensor := range bad {
		if err := tensor.Validate(); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}
