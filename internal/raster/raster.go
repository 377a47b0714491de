// Package raster draws a preview layout into a bitmap.
//
// Geometry is expressed in logical pixels (CSS-like units) and multiplied by
// the capture scale, so a scale of 2 yields a print-quality bitmap twice the
// logical size in each direction.
package raster

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/starford/tally/internal/preview"
)

// DefaultWidth is the logical width of the preview card.
const DefaultWidth = 800

const (
	ellipsisRune = '…'
	ellipsisText = string(ellipsisRune)
)

const (
	padX       = 48
	padY       = 32
	bodySize   = 14
	titleSize  = 18.72
	lineFactor = 1.5
	cellPad    = 8
	itemShare  = 0.4
)

var (
	textColor   = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	accentColor = color.RGBA{R: 0x00, G: 0x7b, B: 0xff, A: 0xff}
	borderColor = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
	ruleColor   = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
)

// Rasterizer captures layouts as bitmaps. It is safe for concurrent use.
type Rasterizer struct {
	regular *opentype.Font
	bold    *opentype.Font
	width   float64
}

// New parses the bundled Go fonts. A width <= 0 selects DefaultWidth.
func New(width int) (*Rasterizer, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("raster: parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("raster: parse bold font: %w", err)
	}
	return &Rasterizer{regular: regular, bold: bold, width: float64(width)}, nil
}

// Capture draws l at the given scale. The bitmap width is width×scale; the
// height follows from the content.
func (r *Rasterizer) Capture(ctx context.Context, l preview.Layout, scale float64) (image.Image, error) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("raster: invalid scale %v", scale)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := r.newPainter(ctx, scale)
	if err != nil {
		return nil, err
	}
	defer p.close()

	height := p.paint(l, nil)
	if p.err != nil {
		return nil, p.err
	}
	w, h := p.px(r.width), p.px(height)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("raster: empty bitmap %dx%d", w, h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	p.paint(l, dst)
	if p.err != nil {
		return nil, p.err
	}
	return dst, nil
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("raster: encode png: %w", err)
	}
	return nil
}

type painter struct {
	ctx   context.Context
	err   error
	scale float64
	width float64
	body  font.Face
	bold  font.Face
	title font.Face
	dst   *image.RGBA
}

func (r *Rasterizer) newPainter(ctx context.Context, scale float64) (*painter, error) {
	p := &painter{ctx: ctx, scale: scale, width: r.width}
	var err error
	if p.body, err = newFace(r.regular, bodySize*scale); err != nil {
		return nil, err
	}
	if p.bold, err = newFace(r.bold, bodySize*scale); err != nil {
		p.close()
		return nil, err
	}
	if p.title, err = newFace(r.bold, titleSize*scale); err != nil {
		p.close()
		return nil, err
	}
	return p, nil
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("raster: new face: %w", err)
	}
	return face, nil
}

func (p *painter) close() {
	for _, f := range []font.Face{p.body, p.bold, p.title} {
		if f != nil {
			_ = f.Close()
		}
	}
}

// paint lays out l top to bottom and returns the total logical height. With a
// nil dst it only measures.
func (p *painter) paint(l preview.Layout, dst *image.RGBA) float64 {
	p.dst = dst
	left, right := float64(padX), p.width-padX
	y := float64(padY)

	// Title with its accent rule.
	y = p.line(p.title, l.Title, left, y, titleSize, textColor)
	y += cellPad
	p.rect(left, y, right, y+2, accentColor)
	y += 2 + 24

	for _, s := range l.Sections {
		if p.cancelled() {
			return y
		}
		y = p.line(p.bold, s.Label, left, y, bodySize, textColor)
		for _, text := range s.Lines {
			y = p.line(p.body, text, left, y, bodySize, textColor)
		}
		y += cellPad
	}
	y += cellPad

	y = p.table(l.Table, left, right, y)
	y += padY

	// Card border.
	h := y
	p.rect(0, 0, p.width, 1, borderColor)
	p.rect(0, h-1, p.width, h, borderColor)
	p.rect(0, 0, 1, h, borderColor)
	p.rect(p.width-1, 0, p.width, h, borderColor)
	return h
}

func (p *painter) table(t preview.Table, left, right, y float64) float64 {
	bounds := columnBounds(len(t.Columns), left, right)
	rowH := bodySize*lineFactor + 2*cellPad

	cells := make([]string, len(t.Columns))
	aligns := make([]preview.Align, len(t.Columns))
	for i, c := range t.Columns {
		cells[i] = c.Header
		aligns[i] = c.Align
	}
	p.row(p.bold, cells, aligns, bounds, y+cellPad)
	y += rowH
	p.rect(left, y, right, y+2, accentColor)
	y += 2

	for _, row := range t.Rows {
		if p.cancelled() {
			return y
		}
		p.row(p.body, row, aligns, bounds, y+cellPad)
		y += rowH
		p.rect(left, y, right, y+1, ruleColor)
		y++
	}

	// Footer label spans every column but the last.
	if n := len(bounds); n > 0 {
		footerBounds := [][2]float64{{bounds[0][0], bounds[n-1][0]}, bounds[n-1]}
		p.row(p.bold, []string{t.FooterLabel, t.FooterValue},
			[]preview.Align{preview.AlignRight, preview.AlignRight}, footerBounds, y+cellPad)
		y += rowH
	}
	return y
}

// columnBounds gives the item column 40% and splits the rest evenly.
func columnBounds(n int, left, right float64) [][2]float64 {
	if n == 0 {
		return nil
	}
	total := right - left
	out := make([][2]float64, n)
	if n == 1 {
		out[0] = [2]float64{left, right}
		return out
	}
	first := total * itemShare
	rest := (total - first) / float64(n-1)
	x := left
	for i := range out {
		w := rest
		if i == 0 {
			w = first
		}
		out[i] = [2]float64{x, x + w}
		x += w
	}
	out[n-1][1] = right
	return out
}

func (p *painter) row(face font.Face, cells []string, aligns []preview.Align, bounds [][2]float64, top float64) {
	for i, text := range cells {
		if i >= len(bounds) {
			break
		}
		x0, x1 := bounds[i][0]+cellPad, bounds[i][1]-cellPad
		text = p.fit(face, text, x1-x0)
		x := x0
		if i < len(aligns) && aligns[i] == preview.AlignRight {
			x = x1 - p.textWidth(face, text)
		}
		p.text(face, text, x, p.baseline(face, top, bodySize), textColor)
	}
}

// line draws one text line in a box of size×lineFactor and returns the next y.
func (p *painter) line(face font.Face, text string, x, top, size float64, col color.Color) float64 {
	text = p.fit(face, text, p.width-2*padX)
	p.text(face, text, x, p.baseline(face, top, size), col)
	return top + size*lineFactor
}

func (p *painter) baseline(face font.Face, top, size float64) float64 {
	m := face.Metrics()
	ascent := float64(m.Ascent.Ceil()) / p.scale
	descent := float64(m.Descent.Ceil()) / p.scale
	return top + (size*lineFactor-(ascent+descent))/2 + ascent
}

// cancelled records the context error once it is set.
func (p *painter) cancelled() bool {
	if p.err == nil {
		p.err = p.ctx.Err()
	}
	return p.err != nil
}

// fit returns text unchanged when it fits in maxW logical pixels, otherwise its
// longest prefix that still fits with an ellipsis appended. Advances are summed
// in a single pass that stops at the first rune past maxW.
func (p *painter) fit(face font.Face, text string, maxW float64) string {
	fits := func(w fixed.Int26_6) bool { return float64(w.Ceil())/p.scale <= maxW }
	ellipsis := font.MeasureString(face, ellipsisText)

	var adv fixed.Int26_6
	prev, cut := rune(-1), -1
	for i, r := range text {
		tail := ellipsis
		if prev >= 0 {
			adv += face.Kern(prev, r)
			tail += face.Kern(prev, ellipsisRune)
		}
		if fits(adv + tail) {
			cut = i
		}
		a, _ := face.GlyphAdvance(r)
		adv += a
		prev = r
		if !fits(adv) {
			if cut < 0 {
				return ""
			}
			return text[:cut] + ellipsisText
		}
	}
	return text
}

func (p *painter) textWidth(face font.Face, text string) float64 {
	return float64(font.MeasureString(face, text).Ceil()) / p.scale
}

func (p *painter) text(face font.Face, text string, x, baseline float64, col color.Color) {
	if p.dst == nil || text == "" {
		return
	}
	d := font.Drawer{
		Dst:  p.dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(p.px(x), p.px(baseline)),
	}
	d.DrawString(text)
}

func (p *painter) rect(x0, y0, x1, y1 float64, col color.Color) {
	if p.dst == nil {
		return
	}
	r := image.Rect(p.px(x0), p.px(y0), p.px(x1), p.px(y1))
	draw.Draw(p.dst, r, image.NewUniform(col), image.Point{}, draw.Src)
}

func (p *painter) px(v float64) int {
	return int(math.Round(v * p.scale))
}
