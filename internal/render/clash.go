package render

import (
	"bytes"
	"strings"

	"github.com/John-Robertt/clashforge/internal/compiler"
	"github.com/John-Robertt/clashforge/internal/model"
	"gopkg.in/yaml.v3"
)

type clashGroup struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"`
	Proxies   []string `yaml:"proxies"`
	URL       string   `yaml:"url,omitempty"`
	Interval  int      `yaml:"interval,omitempty"`
	Tolerance *int     `yaml:"tolerance,omitempty"`
	Lazy      *bool    `yaml:"lazy,omitempty"`
}

type clashProvider struct {
	Type     string `yaml:"type"`
	Behavior string `yaml:"behavior"`
	Format   string `yaml:"format"`
	URL      string `yaml:"url"`
	Path     string `yaml:"path"`
	Interval int    `yaml:"interval"`
}

func renderClash(res *compiler.Result, opt Options) (Blocks, error) {
	proxies, err := encodeYAML(res.Proxies, "[]")
	if err != nil {
		return Blocks{}, err
	}

	groups := make([]clashGroup, 0, len(res.Groups))
	for _, g := range res.Groups {
		cg := clashGroup{Name: g.Name, Type: g.Type, Proxies: g.Members}
		if g.Probing() {
			lazy := g.Lazy
			cg.URL = g.TestURL
			cg.Interval = g.IntervalSec
			cg.Lazy = &lazy
			if g.HasTolerance {
				tol := g.ToleranceMS
				cg.Tolerance = &tol
			}
		}
		groups = append(groups, cg)
	}
	groupBlock, err := encodeYAML(groups, "[]")
	if err != nil {
		return Blocks{}, err
	}

	providers, err := ruleProviders(res.Rules, opt)
	if err != nil {
		return Blocks{}, err
	}
	providerBlock, err := encodeYAML(providers, "{}")
	if err != nil {
		return Blocks{}, err
	}

	lines := make([]string, 0, len(res.Rules))
	for _, r := range res.Rules {
		lines = append(lines, r.String())
	}
	ruleBlock, err := encodeYAML(lines, "[]")
	if err != nil {
		return Blocks{}, err
	}

	return Blocks{
		Proxies:   proxies,
		Groups:    groupBlock,
		Providers: providerBlock,
		Rules:     ruleBlock,
	}, nil
}

// ruleProviders builds one provider per distinct rule-set id, keyed by the
// id itself so RULE-SET lines need no renaming. A yaml.Node keeps the
// mapping in first-use order.
func ruleProviders(rs []model.Rule, opt Options) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	seen := make(map[string]struct{})
	for _, r := range rs {
		if r.Matcher != model.MatchRuleSet {
			continue
		}
		if _, ok := seen[r.Value]; ok {
			continue
		}
		seen[r.Value] = struct{}{}

		behavior, url, ok := ruleSetSource(r.Value, opt)
		if !ok {
			return nil, renderError("INVALID_ARGUMENT", "无法识别的 rule-set id", r.Value, nil)
		}
		p := clashProvider{
			Type:     "http",
			Behavior: behavior,
			Format:   "mrs",
			URL:      url,
			Path:     "./ruleset/" + r.Value + ".mrs",
			Interval: opt.ProviderInterval,
		}

		var val yaml.Node
		if err := val.Encode(p); err != nil {
			return nil, renderError("RENDER_ERROR", "rule-provider 编码失败", r.Value, err)
		}
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: r.Value}, &val)
	}
	if len(m.Content) == 0 {
		return nil, nil
	}
	return m, nil
}

// encodeYAML renders v with two-space indentation and no trailing newline.
// A nil or empty value renders as empty.
func encodeYAML(v any, empty string) (string, error) {
	if isEmpty(v) {
		return empty, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", renderError("RENDER_ERROR", "YAML 编码失败", "", err)
	}
	if err := enc.Close(); err != nil {
		return "", renderError("RENDER_ERROR", "YAML 编码失败", "", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case []model.Proxy:
		return len(x) == 0
	case []clashGroup:
		return len(x) == 0
	case []string:
		return len(x) == 0
	case *yaml.Node:
		return x == nil
	default:
		return false
	}
}

// ProviderURL reports where a rule-set id is fetched from.
func ProviderURL(id string, opt Options) (string, bool) {
	_, url, ok := ruleSetSource(id, opt.withDefaults())
	return url, ok
}

func ruleSetSource(id string, opt Options) (behavior, url string, ok bool) {
	switch {
	case strings.HasPrefix(id, model.SiteRuleSetPrefix):
		return "domain", opt.SiteRuleSetBase + strings.TrimPrefix(id, model.SiteRuleSetPrefix) + ".mrs", true
	case strings.HasPrefix(id, model.IPRuleSetPrefix):
		return "ipcidr", opt.IPRuleSetBase + strings.TrimPrefix(id, model.IPRuleSetPrefix) + ".mrs", true
	default:
		return "", "", false
	}
}
