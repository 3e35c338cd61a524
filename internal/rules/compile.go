// Package rules compiles category selections and custom rules into the
// ordered routing table.
package rules

import (
	"errors"
	"strings"

	"github.com/John-Robertt/clashforge/internal/model"
)

// CustomRule is a user-supplied rule. List fields are comma-separated.
// Category, when set, borrows that category's target; otherwise the rule
// targets the group built under Name.
type CustomRule struct {
	Name          string   `json:"name" yaml:"name"`
	Category      string   `json:"category,omitempty" yaml:"category,omitempty"`
	Domain        string   `json:"domain,omitempty" yaml:"domain,omitempty"`
	DomainSuffix  string   `json:"domain_suffix,omitempty" yaml:"domain_suffix,omitempty"`
	DomainKeyword string   `json:"domain_keyword,omitempty" yaml:"domain_keyword,omitempty"`
	Site          string   `json:"site,omitempty" yaml:"site,omitempty"`
	IP            string   `json:"ip,omitempty" yaml:"ip,omitempty"`
	IPCIDR        string   `json:"ip_cidr,omitempty" yaml:"ip_cidr,omitempty"`
	GeoIP         string   `json:"geoip,omitempty" yaml:"geoip,omitempty"`
	Rules         []string `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// NeedsGroup reports whether the rule gets a group of its own. Every named
// rule does, even when Category decides where its matchers point.
func (r CustomRule) NeedsGroup() bool {
	return strings.TrimSpace(r.Name) != ""
}

// Targets carries the group names the rule table may point at.
type Targets struct {
	ManualSelect string
	Fallback     string
	Categories   map[string]string // category -> group
	Customs      map[string]string // custom rule name -> group
}

type Input struct {
	Categories []string // resolved, see Catalog.Resolve
	Customs    []CustomRule
}

type Result struct {
	Rules       []model.Rule
	Diagnostics []model.Diagnostic
}

// tiers holds one block of rules split by specificity.
type tiers struct {
	domain []model.Rule
	site   []model.Rule
	ip     []model.Rule
}

func (t *tiers) add(r model.Rule) {
	switch r.Matcher {
	case model.MatchDomain, model.MatchDomainSuffix, model.MatchDomainKeyword:
		t.domain = append(t.domain, r)
	case model.MatchRuleSet:
		if strings.HasPrefix(r.Value, model.IPRuleSetPrefix) {
			t.ip = append(t.ip, r)
		} else {
			t.site = append(t.site, r)
		}
	default:
		t.ip = append(t.ip, r)
	}
}

func (t *tiers) flatten() []model.Rule {
	out := make([]model.Rule, 0, len(t.domain)+len(t.site)+len(t.ip))
	out = append(out, t.domain...)
	out = append(out, t.site...)
	return append(out, t.ip...)
}

// Compile builds the rule table: custom rules first, catalog categories
// second (catalog order), each block ordered domain, then site rule-sets,
// then IP matchers. Structurally identical rules keep their first position
// and the table ends with a single MATCH bound to the fallback group.
func (c Catalog) Compile(in Input, tg Targets) Result {
	var res Result

	var custom tiers
	for _, cr := range in.Customs {
		target := c.customTarget(cr, tg, &res.Diagnostics)
		for _, r := range c.customMatchers(cr, &res.Diagnostics) {
			r.Target = target
			custom.add(r)
		}
	}

	selected := make(map[string]struct{}, len(in.Categories))
	for _, n := range in.Categories {
		selected[n] = struct{}{}
	}
	var catalog tiers
	for _, cat := range c.Categories {
		if _, ok := selected[cat.Name]; !ok {
			continue
		}
		target := c.categoryTarget(cat.Name, tg)
		for _, r := range categoryMatchers(cat, &res.Diagnostics) {
			r.Target = target
			catalog.add(r)
		}
	}

	seen := make(map[string]struct{})
	for _, r := range append(custom.flatten(), catalog.flatten()...) {
		key := string(r.Matcher) + "\x1f" + r.Value + "\x1f" + r.Target
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		res.Rules = append(res.Rules, r)
	}
	res.Rules = append(res.Rules, model.Rule{Matcher: model.MatchAll, Target: tg.Fallback})
	return res
}

// categoryTarget resolves explicit binding, then the category's group, then
// manual select.
func (c Catalog) categoryTarget(name string, tg Targets) string {
	if t, ok := c.Bindings[name]; ok && t != "" {
		return t
	}
	if g, ok := tg.Categories[name]; ok {
		return g
	}
	return tg.ManualSelect
}

func (c Catalog) customTarget(cr CustomRule, tg Targets, diags *[]model.Diagnostic) string {
	if cat := strings.TrimSpace(cr.Category); cat != "" {
		if _, ok := c.Lookup(cat); ok {
			return c.categoryTarget(cat, tg)
		}
		if t, ok := c.Bindings[cat]; ok && t != "" {
			return t
		}
		if model.IsSentinel(strings.ToUpper(cat)) {
			return strings.ToUpper(cat)
		}
		*diags = append(*diags, unresolved(cat, "自定义规则引用了不存在的分类，改用节点选择："+cat))
		return tg.ManualSelect
	}
	if g, ok := tg.Customs[strings.TrimSpace(cr.Name)]; ok {
		return g
	}
	return tg.ManualSelect
}

func (c Catalog) customMatchers(cr CustomRule, diags *[]model.Diagnostic) []model.Rule {
	var out []model.Rule
	subject := cr.Name
	push := func(r model.Rule, err error) {
		if err != nil {
			*diags = append(*diags, matcherDiagnostic(subject, err))
			return
		}
		out = append(out, r)
	}

	for _, v := range splitList(cr.Domain) {
		push(model.Rule{Matcher: model.MatchDomain, Value: v}, validateDomain(v))
	}
	for _, v := range splitList(cr.DomainSuffix) {
		push(model.Rule{Matcher: model.MatchDomainSuffix, Value: v}, validateDomain(v))
	}
	for _, v := range splitList(cr.DomainKeyword) {
		push(model.Rule{Matcher: model.MatchDomainKeyword, Value: v}, validateDomain(v))
	}
	for _, v := range splitList(cr.Site) {
		push(siteRuleSet(v), validateRuleSetID(v))
	}
	for _, v := range splitList(cr.IP) {
		push(ipRuleSet(v), validateRuleSetID(v))
	}
	for _, v := range splitList(cr.IPCIDR) {
		push(cidrRule(v))
	}
	for _, v := range splitList(cr.GeoIP) {
		push(model.Rule{Matcher: model.MatchGeoIP, Value: strings.ToUpper(v), NoResolve: true}, validateGeoIP(v))
	}
	for _, line := range cr.Rules {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		push(ParseMatcherLine(line))
	}
	return out
}

func categoryMatchers(cat Category, diags *[]model.Diagnostic) []model.Rule {
	var out []model.Rule
	for _, v := range cat.Domain {
		out = append(out, model.Rule{Matcher: model.MatchDomain, Value: v})
	}
	for _, v := range cat.DomainSuffix {
		out = append(out, model.Rule{Matcher: model.MatchDomainSuffix, Value: v})
	}
	for _, v := range cat.DomainKeyword {
		out = append(out, model.Rule{Matcher: model.MatchDomainKeyword, Value: v})
	}
	for _, v := range cat.Site {
		out = append(out, siteRuleSet(v))
	}
	for _, v := range cat.IP {
		out = append(out, ipRuleSet(v))
	}
	for _, v := range cat.IPCIDR {
		r, err := cidrRule(v)
		if err != nil {
			*diags = append(*diags, matcherDiagnostic(cat.Name, err))
			continue
		}
		out = append(out, r)
	}
	return out
}

func siteRuleSet(id string) model.Rule {
	return model.Rule{Matcher: model.MatchRuleSet, Value: model.SiteRuleSetPrefix + id}
}

func ipRuleSet(id string) model.Rule {
	return model.Rule{Matcher: model.MatchRuleSet, Value: model.IPRuleSetPrefix + id, NoResolve: true}
}

func matcherDiagnostic(subject string, err error) model.Diagnostic {
	msg := err.Error()
	var re *RuleError
	if errors.As(err, &re) {
		msg = re.Message
	}
	return model.Diagnostic{
		Code:    model.CodeInvalidMatcherValue,
		Stage:   "rules",
		Subject: subject,
		Message: msg,
	}
}
