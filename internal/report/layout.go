package report

// A4 portrait in PDF points.
const (
	PageWidth  = 595.27
	PageHeight = 841.89
	Margin     = 40.0
)

// Placement is where an image lands on the page, in points from the top-left corner.
type Placement struct {
	X, Y          float64
	Width, Height float64
	Scale         float64
}

// Layout fits an image of imgW x imgH (pixels, drawn 1px = 1pt) inside the page
// minus margin on every side. Images that already fit keep their natural size;
// larger ones shrink uniformly. The result is centred on both axes.
func Layout(pageW, pageH, margin, imgW, imgH float64) Placement {
	maxW := pageW - 2*margin
	maxH := pageH - 2*margin

	scale := 1.0
	if imgW > maxW || imgH > maxH {
		scale = min(maxW/imgW, maxH/imgH)
	}
	w := imgW * scale
	h := imgH * scale

	return Placement{
		X:      (pageW - w) / 2,
		Y:      (pageH - h) / 2,
		Width:  w,
		Height: h,
		Scale:  scale,
	}
}
