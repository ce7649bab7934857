package goprojection

import (
	"time"

	"go.uber.org/zap"
)

// Renderable is implemented by every Projection.
type Renderable interface {
	Kind() string
	Render(src Serializer, reg Registry) (Document, error)
}

// Observer receives the outcome of each render performed by a Renderer.
type Observer interface {
	ObserveRender(kind string, elapsed time.Duration, err error)
}

// Renderer wraps Render with logging and an optional Observer. The zero
// value renders without logging or observation.
type Renderer struct {
	logger   *zap.Logger
	observer Observer
}

// RenderOption configures a Renderer.
type RenderOption func(*Renderer)

// WithLogger sets the logger. Successful renders are logged at debug level,
// failures at warn level.
func WithLogger(l *zap.Logger) RenderOption {
	return func(r *Renderer) { r.logger = l }
}

// WithObserver sets the Observer.
func WithObserver(o Observer) RenderOption {
	return func(r *Renderer) { r.observer = o }
}

// NewRenderer returns a Renderer configured by opts.
func NewRenderer(opts ...RenderOption) Renderer {
	r := Renderer{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Render renders p, then logs and reports the outcome.
func (r Renderer) Render(p Renderable, src Serializer, reg Registry) (Document, error) {
	start := time.Now()
	doc, err := p.Render(src, reg)
	elapsed := time.Since(start)

	if r.observer != nil {
		r.observer.ObserveRender(p.Kind(), elapsed, err)
	}
	if r.logger == nil {
		return doc, err
	}
	if err != nil {
		r.logger.Warn("projection render failed",
			zap.String("kind", p.Kind()),
			zap.String("code", FirstCode(err)),
			zap.Error(err),
		)
		return nil, err
	}
	r.logger.Debug("projection rendered",
		zap.String("kind", p.Kind()),
		zap.Strings("keys", doc.Keys()),
		zap.Duration("elapsed", elapsed),
	)
	return doc, nil
}
