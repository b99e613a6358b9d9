// Package report renders the classification PDF: the uploaded image centred on
// an A4 page with the prediction printed in the bottom margin.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/draw"
)

var ErrRender = errors.New("render report")

const imageName = "source"

// Input carries everything printed on the report.
type Input struct {
	Label      string
	Category   string
	Confidence float64
	Filename   string

	Image image.Image
	// Raw and Format describe the upload. JPEG bytes are embedded untouched;
	// anything else is re-encoded from Image.
	Raw    []byte
	Format string
}

type Generator struct {
	verify bool
	now    func() time.Time
}

// NewGenerator returns a generator. With verify set, every document is parsed
// back and must contain exactly one page.
func NewGenerator(verify bool) *Generator {
	return &Generator{verify: verify, now: time.Now}
}

func (g *Generator) Generate(in Input) ([]byte, error) {
	if in.Image == nil {
		return nil, fmt.Errorf("%w: no image", ErrRender)
	}
	bounds := in.Image.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrRender)
	}

	embedded, err := jpegBytes(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: PageWidth, Ht: PageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("docsort", false)
	pdf.SetTitle(fmt.Sprintf("%s classification report", in.Label), true)
	pdf.SetSubject(in.Category, true)
	pdf.SetKeywords(fmt.Sprintf("label=%s category=%s confidence=%.4f", in.Label, in.Category, in.Confidence), true)
	if in.Filename != "" {
		pdf.SetAuthor(in.Filename, true)
	}
	pdf.SetCreationDate(g.now())
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(embedded))
	if pdf.Err() {
		return nil, fmt.Errorf("%w: %v", ErrRender, pdf.Error())
	}

	place := Layout(PageWidth, PageHeight, Margin, float64(bounds.Dx()), float64(bounds.Dy()))
	pdf.ImageOptions(imageName, place.X, place.Y, place.Width, place.Height, false, opts, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(80, 80, 80)
	caption := Caption(in.Label, in.Category, in.Confidence)
	pdf.Text((PageWidth-pdf.GetStringWidth(caption))/2, PageHeight-Margin/2+3, caption)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	out := buf.Bytes()

	if g.verify {
		if err := Verify(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Caption is the single line printed under the image.
func Caption(label, category string, confidence float64) string {
	return fmt.Sprintf("%s (%s) - confidence %.4f", label, category, confidence)
}

func jpegBytes(in Input) ([]byte, error) {
	if in.Format == "jpeg" && len(in.Raw) > 0 {
		return in.Raw, nil
	}

	// Flatten onto white so transparent regions do not turn black.
	b := in.Image.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), in.Image, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: 92}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
