package groups

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/John-Robertt/clashforge/internal/model"
)

// Region ties a canonical region key to the pattern that recognizes its
// proxies by display name. Label overrides the localized "regions.<Key>".
type Region struct {
	Key     string `yaml:"key" json:"key"`
	Label   string `yaml:"label,omitempty" json:"label,omitempty"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

// Affinity prepends the probe groups of Regions to every category group
// whose identifier matches Pattern.
type Affinity struct {
	Pattern string   `yaml:"pattern" json:"pattern"`
	Regions []string `yaml:"regions" json:"regions"`
}

type Probe struct {
	URL         string `yaml:"url" json:"url"`
	IntervalSec int    `yaml:"interval" json:"interval"`
	ToleranceMS int    `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	Lazy        bool   `yaml:"lazy" json:"lazy"`
}

type FallbackMode string

const (
	FallbackSelect FallbackMode = "select"
	FallbackProbe  FallbackMode = "probe"
)

// Config is plain data so a run can deep-copy it. Patterns are compiled by
// NewBuilder.
type Config struct {
	Regions          []Region
	Affinities       []Affinity
	LocalityPatterns []string
	NoisePattern     string
	PreferredRegions []string
	Probe            Probe
	Fallback         FallbackMode
}

const DefaultProbeURL = "https://www.gstatic.com/generate_204"

func DefaultRegions() []Region {
	return []Region{
		{Key: "HK", Pattern: `(?i)🇭🇰|香港|\bHK\b|hong\s*kong`},
		{Key: "US", Pattern: `(?i)🇺🇸|美国|\bUS\b|united\s*states|america`},
		{Key: "SG", Pattern: `(?i)🇸🇬|新加坡|狮城|\bSG\b|singapore`},
		{Key: "JP", Pattern: `(?i)🇯🇵|日本|东京|大阪|\bJP\b|japan|tokyo`},
		{Key: "GB", Pattern: `(?i)🇬🇧|英国|伦敦|\bUK\b|\bGB\b|united\s*kingdom|london`},
		{Key: "TW", Pattern: `(?i)🇹🇼|台湾|臺灣|\bTW\b|taiwan`},
		{Key: "KR", Pattern: `(?i)🇰🇷|韩国|首尔|\bKR\b|korea|seoul`},
	}
}

func DefaultAffinities() []Affinity {
	return []Affinity{
		{Pattern: `(?i)media|stream|video|youtube|netflix|disney|hbo`, Regions: []string{"HK", "SG"}},
		{Pattern: `(?i)openai|chatgpt|claude|gemini|\bai\b`, Regions: []string{"SG", "US"}},
	}
}

func DefaultLocalityPatterns() []string {
	return []string{`^Location:CN$`, `^Private$`, `^Bilibili$`}
}

const DefaultNoisePattern = `(?i)剩余|到期|流量|官网|expire|traffic|website|重置`

func DefaultConfig() Config {
	return Config{
		Regions:          DefaultRegions(),
		Affinities:       DefaultAffinities(),
		LocalityPatterns: DefaultLocalityPatterns(),
		NoisePattern:     DefaultNoisePattern,
		Probe:            Probe{URL: DefaultProbeURL, IntervalSec: 300},
		Fallback:         FallbackSelect,
	}
}

func (c Config) withDefaults() Config {
	if c.Probe.URL == "" {
		c.Probe.URL = DefaultProbeURL
	}
	if c.Probe.IntervalSec <= 0 {
		c.Probe.IntervalSec = 300
	}
	if c.Fallback == "" {
		c.Fallback = FallbackSelect
	}
	return c
}

type ConfigError struct {
	AppError model.AppError
	Cause    error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

func newConfigError(msg, snippet string, cause error) *ConfigError {
	return &ConfigError{
		AppError: model.AppError{
			Code:    "GROUP_CONFIG_INVALID",
			Message: msg,
			Stage:   "groups",
			Snippet: snippet,
		},
		Cause: cause,
	}
}

type compiledRegion struct {
	Region
	re *regexp.Regexp
}

type compiledAffinity struct {
	re      *regexp.Regexp
	regions []string
}

type compiled struct {
	regions    []compiledRegion
	affinities []compiledAffinity
	locality   []*regexp.Regexp
	noise      *regexp.Regexp
}

func compileConfig(c Config) (*compiled, error) {
	out := &compiled{}
	keys := make(map[string]struct{}, len(c.Regions))
	for _, r := range c.Regions {
		r.Key = strings.TrimSpace(r.Key)
		if r.Key == "" {
			return nil, newConfigError("地区 key 不能为空", r.Pattern, nil)
		}
		if _, dup := keys[r.Key]; dup {
			return nil, newConfigError("地区 key 重复："+r.Key, r.Key, nil)
		}
		keys[r.Key] = struct{}{}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, newConfigError("地区正则不合法："+r.Key, r.Pattern, err)
		}
		out.regions = append(out.regions, compiledRegion{Region: r, re: re})
	}
	for _, a := range c.Affinities {
		re, err := regexp.Compile(a.Pattern)
		if err != nil {
			return nil, newConfigError("亲和正则不合法", a.Pattern, err)
		}
		for _, k := range a.Regions {
			if _, ok := keys[k]; !ok {
				return nil, newConfigError("亲和规则引用了未知地区："+k, a.Pattern, nil)
			}
		}
		out.affinities = append(out.affinities, compiledAffinity{re: re, regions: a.Regions})
	}
	for _, p := range c.LocalityPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, newConfigError("直连分类正则不合法", p, err)
		}
		out.locality = append(out.locality, re)
	}
	if c.NoisePattern != "" {
		re, err := regexp.Compile(c.NoisePattern)
		if err != nil {
			return nil, newConfigError("过滤正则不合法", c.NoisePattern, err)
		}
		out.noise = re
	}
	switch c.Fallback {
	case FallbackSelect, FallbackProbe:
	default:
		return nil, newConfigError("不支持的 fallback 模式："+string(c.Fallback), string(c.Fallback), nil)
	}
	return out, nil
}
