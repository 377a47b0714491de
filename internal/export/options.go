package export

import "log/slog"

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline)

// WithScale sets the capture scale factor.
func WithScale(scale float64) Option {
	return func(p *Pipeline) {
		p.scale = scale
	}
}

// WithPageFormat sets the named page format whose width the page uses.
func WithPageFormat(format string) Option {
	return func(p *Pipeline) {
		p.format = format
	}
}

// WithLogger sets the logger used for export progress.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}
