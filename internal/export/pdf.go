package export

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/starford/tally/internal/apperr"
	"github.com/starford/tally/internal/models"
	"github.com/starford/tally/internal/raster"
)

// DefaultPageFormat is the physical page the bitmap is fitted to.
const DefaultPageFormat = "A4"

const imageName = "preview"

// Page is the physical page size in points.
type Page struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FileName returns the fixed download name for a document kind.
func FileName(kind models.Kind) (string, error) {
	switch kind {
	case models.KindInvoice:
		return "invoice.pdf", nil
	case models.KindPurchaseOrder:
		return "purchase_order.pdf", nil
	default:
		return "", fmt.Errorf("%w: %q", apperr.ErrUnknownKind, kind)
	}
}

// PageWidth returns the portrait width in points of a named page format such
// as "A4" or "Letter".
func PageWidth(format string) (float64, error) {
	pdf := gofpdf.New("P", "pt", DefaultPageFormat, "")
	size := pdf.GetPageSizeStr(format)
	if pdf.Err() {
		return 0, fmt.Errorf("export: page format %q: %w", format, pdf.Error())
	}
	return size.Wd, nil
}

// PageHeight keeps the bitmap's aspect ratio on a page pageWidth wide.
func PageHeight(bitmapWidth, bitmapHeight int, pageWidth float64) float64 {
	return float64(bitmapHeight) * (pageWidth / float64(bitmapWidth))
}

// Embed writes a single-page PDF to w whose only content is img stretched over
// the full page. The page is pageWidth wide and as tall as the bitmap's aspect
// ratio requires, so nothing is cropped or letterboxed.
func Embed(w io.Writer, img image.Image, pageWidth float64) (Page, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Page{}, fmt.Errorf("empty bitmap %dx%d", b.Dx(), b.Dy())
	}
	if pageWidth <= 0 {
		return Page{}, fmt.Errorf("invalid page width %v", pageWidth)
	}
	page := Page{Width: pageWidth, Height: PageHeight(b.Dx(), b.Dy(), pageWidth)}

	var encoded bytes.Buffer
	if err := raster.EncodePNG(&encoded, img); err != nil {
		return Page{}, err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: page.Width, Ht: page.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("tally", true)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imageName, opts, &encoded)
	pdf.ImageOptions(imageName, 0, 0, page.Width, page.Height, false, opts, 0, "")

	if pdf.Err() {
		return Page{}, fmt.Errorf("gofpdf: %w", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return Page{}, fmt.Errorf("gofpdf output: %w", err)
	}
	return page, nil
}
