// Package profile reads the user profile: rule selection, custom rules and
// the grouping and identity policies of a run. Profiles are YAML or INI.
package profile

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/John-Robertt/clashforge/internal/compiler"
	"github.com/John-Robertt/clashforge/internal/dedup"
	"github.com/John-Robertt/clashforge/internal/groups"
	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/John-Robertt/clashforge/internal/normalize"
	"github.com/John-Robertt/clashforge/internal/rules"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Spec struct {
	Version int
	Lang    string

	Selection rules.Selection
	Customs   []rules.CustomRule

	UnknownKinds normalize.Policy
	Identity     dedup.KeyPolicy
	Groups       groups.Config
}

// Config returns the compiler configuration described by the profile.
func (s *Spec) Config() compiler.Config {
	cfg := compiler.DefaultConfig()
	cfg.Normalize.UnknownKinds = s.UnknownKinds
	cfg.Identity = s.Identity
	cfg.Groups = s.Groups
	return cfg
}

type ParseError struct {
	AppError model.AppError
	Cause    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

type Format string

const (
	FormatAuto Format = ""
	FormatYAML Format = "yaml"
	FormatINI  Format = "ini"
)

func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, true
	case "yaml", "yml":
		return FormatYAML, true
	case "ini":
		return FormatINI, true
	default:
		return "", false
	}
}

// DetectFormat picks INI when the source name ends in .ini or the first
// meaningful line is a section header; YAML otherwise.
func DetectFormat(source, content string) Format {
	if strings.HasSuffix(strings.ToLower(source), ".ini") {
		return FormatINI
	}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			return FormatINI
		}
		return FormatYAML
	}
	return FormatYAML
}

// Parse reads a profile in the given format. source only labels errors.
func Parse(source, content string, format Format) (*Spec, error) {
	if format == FormatAuto {
		format = DetectFormat(source, content)
	}
	var (
		rp  rawProfile
		err error
	)
	switch format {
	case FormatINI:
		err = decodeINI(content, &rp)
	default:
		err = yamlDecodeStrict(content, &rp)
	}
	if err != nil {
		return nil, &ParseError{
			AppError: model.AppError{
				Code:    "PROFILE_PARSE_ERROR",
				Message: fmt.Sprintf("profile %s 解析失败", strings.ToUpper(string(format))),
				Stage:   "parse_profile",
				URL:     source,
				Snippet: truncateSnippet(content, 200),
			},
			Cause: err,
		}
	}
	return build(source, &rp)
}

// Default is the profile used when none is given.
func Default() *Spec {
	return &Spec{
		Version:      1,
		UnknownKinds: normalize.PolicyStrict,
		Groups:       groups.DefaultConfig(),
	}
}

type rawRules struct {
	Preset     string   `yaml:"preset"`
	Categories []string `yaml:"categories"`
}

type rawProbe struct {
	URL       string `yaml:"url"`
	Interval  int    `yaml:"interval"`
	Tolerance int    `yaml:"tolerance"`
	Lazy      bool   `yaml:"lazy"`
}

type rawProfile struct {
	Version          int                `yaml:"version"`
	Lang             string             `yaml:"lang"`
	Rules            rawRules           `yaml:"rules"`
	CustomRules      []rules.CustomRule `yaml:"custom_rules"`
	PreferredRegions []string           `yaml:"preferred_regions"`
	UnknownKinds     string             `yaml:"unknown_kinds"`
	Identity         string             `yaml:"identity"`
	Fallback         string             `yaml:"fallback"`
	Probe            *rawProbe          `yaml:"probe"`
	Regions          []groups.Region    `yaml:"regions"`
	Affinities       []groups.Affinity  `yaml:"affinities"`
	ExcludePattern   *string            `yaml:"exclude_pattern"`
}

func build(source string, rp *rawProfile) (*Spec, error) {
	invalid := func(msg, hint string, cause error) error {
		return &ParseError{
			AppError: model.AppError{
				Code:    "PROFILE_VALIDATE_ERROR",
				Message: msg,
				Stage:   "parse_profile",
				URL:     source,
				Hint:    hint,
			},
			Cause: cause,
		}
	}

	if rp.Version != 1 {
		return nil, invalid("profile version 必须为 1", "expected: version: 1", nil)
	}

	spec := Default()
	spec.Lang = strings.TrimSpace(rp.Lang)
	spec.Selection = rules.Selection{Preset: strings.TrimSpace(rp.Rules.Preset), Categories: rp.Rules.Categories}

	policy, ok := normalize.ParsePolicy(rp.UnknownKinds)
	if !ok {
		return nil, invalid("unknown_kinds 不合法："+rp.UnknownKinds, "expected: strict | passthrough", nil)
	}
	spec.UnknownKinds = policy

	switch strings.ToLower(strings.TrimSpace(rp.Identity)) {
	case "", "credentials":
	case "transport":
		spec.Identity.IncludeTransport = true
	default:
		return nil, invalid("identity 不合法："+rp.Identity, "expected: credentials | transport", nil)
	}

	switch fb := groups.FallbackMode(strings.ToLower(strings.TrimSpace(rp.Fallback))); fb {
	case "":
	case groups.FallbackSelect, groups.FallbackProbe:
		spec.Groups.Fallback = fb
	default:
		return nil, invalid("fallback 不合法："+rp.Fallback, "expected: select | probe", nil)
	}

	if rp.Probe != nil {
		if rp.Probe.URL != "" {
			if err := validateHTTPURL(rp.Probe.URL); err != nil {
				return nil, invalid("probe.url 不合法", "expected: http(s)://...", err)
			}
			spec.Groups.Probe.URL = rp.Probe.URL
		}
		if rp.Probe.Interval < 0 || rp.Probe.Tolerance < 0 {
			return nil, invalid("probe.interval/tolerance 不能为负数", "", nil)
		}
		if rp.Probe.Interval > 0 {
			spec.Groups.Probe.IntervalSec = rp.Probe.Interval
		}
		spec.Groups.Probe.ToleranceMS = rp.Probe.Tolerance
		spec.Groups.Probe.Lazy = rp.Probe.Lazy
	}
	if len(rp.Regions) > 0 {
		spec.Groups.Regions = rp.Regions
	}
	if rp.Affinities != nil {
		spec.Groups.Affinities = rp.Affinities
	}
	if rp.ExcludePattern != nil {
		spec.Groups.NoisePattern = *rp.ExcludePattern
	}
	for _, r := range rp.PreferredRegions {
		if r = strings.TrimSpace(r); r != "" {
			spec.Groups.PreferredRegions = append(spec.Groups.PreferredRegions, r)
		}
	}
	if _, err := groups.NewBuilder(spec.Groups, nil, zerolog.Nop()); err != nil {
		return nil, invalid("策略组配置不合法", "", err)
	}

	names := make(map[string]struct{}, len(rp.CustomRules))
	for i, cr := range rp.CustomRules {
		cr.Name = strings.TrimSpace(cr.Name)
		cr.Category = strings.TrimSpace(cr.Category)
		if cr.Name == "" && cr.Category == "" {
			return nil, invalid(fmt.Sprintf("custom_rules[%d] 需要 name 或 category", i), "", nil)
		}
		if strings.ContainsAny(cr.Name, "\r\n\x00") {
			return nil, invalid(fmt.Sprintf("custom_rules[%d] name 包含非法控制字符", i), "forbidden: \\r \\n \\0", nil)
		}
		if model.IsSentinel(cr.Name) {
			return nil, invalid("custom_rules name 不能是 DIRECT/REJECT："+cr.Name, "use category: DIRECT instead", nil)
		}
		if cr.NeedsGroup() {
			if _, dup := names[cr.Name]; dup {
				return nil, invalid("custom_rules name 重复："+cr.Name, "", nil)
			}
			names[cr.Name] = struct{}{}
		}
		spec.Customs = append(spec.Customs, cr)
	}
	return spec, nil
}

func yamlDecodeStrict(content string, out any) error {
	dec := yaml.NewDecoder(strings.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return err
	}

	// Reject multi-document YAML to keep behavior deterministic.
	var extra any
	if err := dec.Decode(&extra); err == nil {
		return errors.New("multiple YAML documents are not allowed")
	} else if !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func validateHTTPURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if u == nil || !u.IsAbs() {
		return errors.New("url must be absolute")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http/https")
	}
	return nil
}

func truncateSnippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max]
}
