package httpapi

import "github.com/John-Robertt/clashforge/internal/render"

// Options controls HTTP API runtime behavior.
type Options struct {
	// MaxBodyBytes bounds a convert request body (descriptors, profile and
	// template all travel inline).
	MaxBodyBytes int64

	// Template replaces the built-in base document when set.
	Template string

	Render render.Options
}

func (o Options) withDefaults() Options {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 8 << 20
	}
	return o
}
