// Package convert wires the host pipeline shared by the CLI and the HTTP
// API: profile policy -> compile -> render -> template injection.
package convert

import (
	"github.com/John-Robertt/clashforge/internal/compiler"
	"github.com/John-Robertt/clashforge/internal/i18n"
	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/John-Robertt/clashforge/internal/profile"
	"github.com/John-Robertt/clashforge/internal/render"
	"github.com/John-Robertt/clashforge/internal/template"
	"github.com/rs/zerolog"
)

type Options struct {
	// Template is the base document; empty means template.Default().
	Template    string
	TemplateURL string
	Render      render.Options
	// Logger receives the compile stage's debug events; nil discards them.
	Logger *zerolog.Logger
}

type Output struct {
	Text   string
	Result *compiler.Result
}

// Config produces a complete Clash document. A nil profile means profile.Default().
func Config(descs []model.Descriptor, spec *profile.Spec, opt Options) (*Output, error) {
	if spec == nil {
		spec = profile.Default()
	}
	cfg := spec.Config()
	res, err := compiler.Compile(compiler.Input{
		Descriptors: descs,
		Selection:   spec.Selection,
		Customs:     spec.Customs,
	}, compiler.Options{
		Config:    &cfg,
		Localizer: i18n.New(spec.Lang),
		Logger:    opt.Logger,
	})
	if err != nil {
		return nil, err
	}

	blocks, err := render.Clash(res, opt.Render)
	if err != nil {
		return nil, err
	}

	base := opt.Template
	if base == "" {
		base = template.Default()
	}
	text, err := template.Inject(base, blocks, template.Options{TemplateURL: opt.TemplateURL})
	if err != nil {
		return nil, err
	}
	return &Output{Text: text, Result: res}, nil
}

// List renders the normalized, deduplicated proxies only.
func List(descs []model.Descriptor, spec *profile.Spec, format render.ListFormat) (string, []model.Diagnostic, error) {
	if spec == nil {
		spec = profile.Default()
	}
	cfg := spec.Config()
	proxies, diags := compiler.NormalizeProxies(descs, compiler.Options{Config: &cfg})
	text, err := render.ProxyList(proxies, format)
	if err != nil {
		return "", diags, err
	}
	return text, diags, nil
}
