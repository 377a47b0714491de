// Package export turns a mounted preview into a single-page PDF download.
//
// The pipeline is a two-state machine (Idle, Exporting). A trigger captures
// the preview as a bitmap, sizes a page to the bitmap's aspect ratio, embeds
// the bitmap as the page's only content and hands the file to a Saver. Every
// run ends back in Idle, whether it succeeded or not.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/starford/tally/internal/checksum"
	"github.com/starford/tally/internal/preview"
)

// DefaultScale is the capture scale: two device pixels per logical pixel.
const DefaultScale = 2

// State is the pipeline state.
type State int32

// Pipeline states.
const (
	StateIdle State = iota
	StateExporting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExporting:
		return "exporting"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Capturer rasterises a layout at a scale factor.
type Capturer interface {
	Capture(ctx context.Context, l preview.Layout, scale float64) (image.Image, error)
}

// Saver persists an exported file under its download name.
type Saver interface {
	Save(ctx context.Context, name string, data []byte) error
}

// Source is a preview surface. ok is false while nothing is mounted.
type Source interface {
	Snapshot() (l preview.Layout, ok bool)
}

// Size is a bitmap size in device pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result describes a finished export.
type Result struct {
	FileName string `json:"file_name"`
	Bytes    int    `json:"bytes"`
	Checksum string `json:"checksum"`
	Bitmap   Size   `json:"bitmap"`
	Page     Page   `json:"page"`
	Data     []byte `json:"-"`
}

// Outcome is what an asynchronous export delivers. A zero Outcome means the
// trigger was a no-op because the preview was not mounted.
type Outcome struct {
	Result *Result
	Err    error
}

// Pipeline exports one preview at a time.
type Pipeline struct {
	capturer  Capturer
	saver     Saver
	scale     float64
	format    string
	pageWidth float64
	logger    *slog.Logger
	state     atomic.Int32
}

// NewPipeline builds an idle pipeline. Without options it captures at
// DefaultScale onto DefaultPageFormat.
func NewPipeline(capturer Capturer, saver Saver, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		capturer: capturer,
		saver:    saver,
		scale:    DefaultScale,
		format:   DefaultPageFormat,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.capturer == nil || p.saver == nil {
		return nil, fmt.Errorf("export: capturer and saver are required")
	}
	if p.scale <= 0 {
		return nil, fmt.Errorf("export: invalid scale %v", p.scale)
	}
	w, err := PageWidth(p.format)
	if err != nil {
		return nil, err
	}
	p.pageWidth = w
	return p, nil
}

// State returns the current state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// PageWidth returns the physical page width in points.
func (p *Pipeline) PageWidth() float64 {
	return p.pageWidth
}

// Start triggers an export of src and returns a channel that delivers exactly
// one Outcome. The layout is snapshotted before Start returns, so later edits
// do not leak into the file.
//
// If src is nil or not mounted the trigger is a no-op: the Outcome is zero and the
// state does not change. If an export is already running the Outcome carries
// ErrExportInProgress.
func (p *Pipeline) Start(ctx context.Context, src Source) <-chan Outcome {
	out := make(chan Outcome, 1)

	var (
		l  preview.Layout
		ok bool
	)
	if src != nil {
		l, ok = src.Snapshot()
	}
	if !ok {
		p.logger.Debug("export: preview not mounted, ignoring trigger")
		out <- Outcome{}
		close(out)
		return out
	}
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateExporting)) {
		out <- Outcome{Err: ErrExportInProgress}
		close(out)
		return out
	}

	go func() {
		defer close(out)
		stage := StageCapture
		var o Outcome
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("export: panic", slog.String("stage", string(stage)), slog.Any("panic", r))
					o = Outcome{Err: &Error{Stage: stage, Err: fmt.Errorf("panic: %v", r)}}
				}
			}()
			o.Result, o.Err = p.run(ctx, l, &stage)
		}()
		p.state.Store(int32(StateIdle))
		out <- o
	}()
	return out
}

// Export runs Start and waits for its Outcome. A nil Result with a nil error
// means the preview was not mounted.
func (p *Pipeline) Export(ctx context.Context, src Source) (*Result, error) {
	o := <-p.Start(ctx, src)
	return o.Result, o.Err
}

// run advances *stage before each step so a panic can be attributed.
func (p *Pipeline) run(ctx context.Context, l preview.Layout, stage *Stage) (*Result, error) {
	name, err := FileName(l.Kind)
	if err != nil {
		return nil, err
	}

	img, err := p.capturer.Capture(ctx, l, p.scale)
	if err != nil {
		return nil, &Error{Stage: StageCapture, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	*stage = StageEmbed
	var buf bytes.Buffer
	page, err := Embed(&buf, img, p.pageWidth)
	if err != nil {
		return nil, &Error{Stage: StageEmbed, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	*stage = StageSave
	data := buf.Bytes()
	if err := p.saver.Save(ctx, name, data); err != nil {
		return nil, &Error{Stage: StageSave, Err: err}
	}

	res := &Result{
		FileName: name,
		Bytes:    len(data),
		Checksum: checksum.Sum(data),
		Bitmap:   Size{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()},
		Page:     page,
		Data:     data,
	}
	p.logger.Info("export: completed",
		slog.String("file", res.FileName),
		slog.Int("bytes", res.Bytes),
		slog.Float64("page_height", page.Height))
	return res, nil
}
