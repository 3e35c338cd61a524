// Package render turns a compilation result into Clash YAML blocks ready to
// be injected into a base document, plus flat proxy listings.
package render

import (
	"fmt"

	"github.com/John-Robertt/clashforge/internal/compiler"
	"github.com/John-Robertt/clashforge/internal/model"
)

// Blocks holds the YAML for each injectable section. Every block is rendered
// at indentation zero; the template layer indents it under its anchor.
type Blocks struct {
	Proxies   string
	Groups    string
	Providers string
	Rules     string
}

const (
	DefaultSiteRuleSetBase = "https://github.com/MetaCubeX/meta-rules-dat/raw/refs/heads/meta/geo/geosite/"
	DefaultIPRuleSetBase   = "https://github.com/MetaCubeX/meta-rules-dat/raw/refs/heads/meta/geo/geoip/"
)

type Options struct {
	// Base URLs for geosite-<id> and geoip-<id> rule-sets; <id>.mrs is appended.
	SiteRuleSetBase string
	IPRuleSetBase   string
	// Provider refresh interval in seconds.
	ProviderInterval int
}

func (o Options) withDefaults() Options {
	if o.SiteRuleSetBase == "" {
		o.SiteRuleSetBase = DefaultSiteRuleSetBase
	}
	if o.IPRuleSetBase == "" {
		o.IPRuleSetBase = DefaultIPRuleSetBase
	}
	if o.ProviderInterval <= 0 {
		o.ProviderInterval = 86400
	}
	return o
}

type RenderError struct {
	AppError model.AppError
	Cause    error
}

func (e *RenderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

func renderError(code, msg, snippet string, cause error) error {
	return &RenderError{
		AppError: model.AppError{
			Code:    code,
			Message: msg,
			Stage:   "render",
			Snippet: snippet,
		},
		Cause: cause,
	}
}

// Clash renders the four Clash blocks of a result.
func Clash(res *compiler.Result, opt Options) (Blocks, error) {
	if res == nil {
		return Blocks{}, renderError("INVALID_ARGUMENT", "render input 不能为空", "", nil)
	}
	return renderClash(res, opt.withDefaults())
}
