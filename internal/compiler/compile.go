// Package compiler runs one conversion: descriptors and rule selections in,
// proxies, groups and rules out.
package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/clashforge/internal/dedup"
	"github.com/John-Robertt/clashforge/internal/groups"
	"github.com/John-Robertt/clashforge/internal/i18n"
	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/John-Robertt/clashforge/internal/normalize"
	"github.com/John-Robertt/clashforge/internal/rules"
	"github.com/mohae/deepcopy"
	"github.com/rs/zerolog"
)

// Config is the plain-data policy of a run. Compile works on a deep copy,
// so a shared default is never mutated.
type Config struct {
	Normalize normalize.Options
	Identity  dedup.KeyPolicy
	Groups    groups.Config
	Catalog   rules.Catalog
}

func DefaultConfig() Config {
	return Config{
		Normalize: normalize.Options{UnknownKinds: normalize.PolicyStrict},
		Groups:    groups.DefaultConfig(),
		Catalog:   rules.DefaultCatalog(),
	}
}

type Input struct {
	Descriptors []model.Descriptor
	Selection   rules.Selection
	Customs     []rules.CustomRule
}

type Options struct {
	// Config defaults to DefaultConfig().
	Config *Config
	// Localizer defaults to the built-in zh-CN table.
	Localizer i18n.Localizer
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Config == nil {
		cfg := DefaultConfig()
		o.Config = &cfg
	}
	if o.Localizer == nil {
		o.Localizer = i18n.New("")
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}

type Result struct {
	Proxies     []model.Proxy
	Groups      []model.Group
	Rules       []model.Rule
	Diagnostics []model.Diagnostic
}

type CompileError struct {
	AppError model.AppError
	Cause    error
}

func (e *CompileError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *CompileError) Unwrap() error { return e.Cause }

// Compile never fails on bad input: recoverable problems become
// Diagnostics. An error means the configuration itself is unusable (for
// example an invalid region pattern) or the result broke an internal
// invariant, which Verify reports.
func Compile(in Input, opt Options) (*Result, error) {
	opt = opt.withDefaults()
	cfg := deepcopy.Copy(*opt.Config).(Config)
	logger := opt.Logger.With().Str("component", "compiler").Logger()

	builder, err := groups.NewBuilder(cfg.Groups, opt.Localizer, *opt.Logger)
	if err != nil {
		return nil, &CompileError{
			AppError: model.AppError{
				Code:    "CONFIG_INVALID",
				Message: "策略组配置不合法",
				Stage:   "compile",
			},
			Cause: err,
		}
	}

	res := &Result{}
	res.Proxies, res.Diagnostics = normalizeAll(in.Descriptors, cfg, *opt.Logger)

	categories, diags := cfg.Catalog.Resolve(in.Selection)
	res.Diagnostics = append(res.Diagnostics, diags...)

	customs := make([]string, 0, len(in.Customs))
	for _, cr := range in.Customs {
		if cr.NeedsGroup() {
			customs = append(customs, strings.TrimSpace(cr.Name))
		}
	}

	names := make([]string, 0, len(res.Proxies))
	for _, p := range res.Proxies {
		names = append(names, p.Name)
	}
	built := builder.Build(groups.Input{
		Proxies:    names,
		Categories: categories,
		Customs:    customs,
	})
	res.Groups = built.Groups
	res.Diagnostics = append(res.Diagnostics, built.Diagnostics...)

	compiled := cfg.Catalog.Compile(rules.Input{
		Categories: categories,
		Customs:    in.Customs,
	}, rules.Targets{
		ManualSelect: built.ManualSelect,
		Fallback:     built.Fallback,
		Categories:   built.Categories,
		Customs:      built.Customs,
	})
	res.Rules = compiled.Rules
	res.Diagnostics = append(res.Diagnostics, compiled.Diagnostics...)

	if err := Verify(res); err != nil {
		return nil, err
	}

	logger.Debug().
		Int("descriptors", len(in.Descriptors)).
		Int("proxies", len(res.Proxies)).
		Int("groups", len(res.Groups)).
		Int("rules", len(res.Rules)).
		Int("diagnostics", len(res.Diagnostics)).
		Msg("compiled")
	return res, nil
}

// NormalizeProxies runs only the normalize and dedup stages. It backs the
// proxy-list output, which has no groups or rules.
func NormalizeProxies(descs []model.Descriptor, opt Options) ([]model.Proxy, []model.Diagnostic) {
	opt = opt.withDefaults()
	cfg := deepcopy.Copy(*opt.Config).(Config)
	return normalizeAll(descs, cfg, *opt.Logger)
}

func normalizeAll(descs []model.Descriptor, cfg Config, logger zerolog.Logger) ([]model.Proxy, []model.Diagnostic) {
	reg := dedup.NewRegistry(cfg.Identity, logger)
	var diags []model.Diagnostic
	for _, d := range descs {
		p, err := normalize.Normalize(d, cfg.Normalize)
		if err != nil {
			var ne *normalize.Error
			if errors.As(err, &ne) {
				diags = append(diags, ne.Diagnostic())
			} else {
				diags = append(diags, model.Diagnostic{
					Code:    model.CodeDescriptorInvalid,
					Stage:   "normalize",
					Subject: d.Tag,
					Message: err.Error(),
				})
			}
			continue
		}
		seed := p.Name
		kept, skipped := reg.Accept(p)
		if skipped {
			diags = append(diags, model.Diagnostic{
				Code:    model.CodeDuplicateProxy,
				Stage:   "dedup",
				Subject: seed,
				Message: "与已有节点重复，已跳过：" + kept.Name,
			})
		}
	}
	return reg.Proxies(), diags
}
