package rules

import (
	"sort"
	"strings"

	"github.com/John-Robertt/clashforge/internal/model"
)

// Category is one entry of the rule catalog. Site and IP hold remote
// rule-set ids (without the geosite-/geoip- prefix).
type Category struct {
	Name          string   `json:"name" yaml:"name"`
	Site          []string `json:"site,omitempty" yaml:"site,omitempty"`
	IP            []string `json:"ip,omitempty" yaml:"ip,omitempty"`
	Domain        []string `json:"domain,omitempty" yaml:"domain,omitempty"`
	DomainSuffix  []string `json:"domain_suffix,omitempty" yaml:"domain_suffix,omitempty"`
	DomainKeyword []string `json:"domain_keyword,omitempty" yaml:"domain_keyword,omitempty"`
	IPCIDR        []string `json:"ip_cidr,omitempty" yaml:"ip_cidr,omitempty"`
}

type Catalog struct {
	Categories []Category          `json:"categories" yaml:"categories"`
	Presets    map[string][]string `json:"presets" yaml:"presets"`
	// Bindings pins categories to a sentinel target regardless of groups.
	Bindings map[string]string `json:"bindings" yaml:"bindings"`
}

const (
	PresetMinimal       = "minimal"
	PresetBalanced      = "balanced"
	PresetComprehensive = "comprehensive"
)

func DefaultCategories() []Category {
	return []Category{
		{Name: "Ad Block", Site: []string{"category-ads-all"}},
		{Name: "AI Services", Site: []string{"category-ai-!cn"}},
		{Name: "Bilibili", Site: []string{"bilibili"}},
		{Name: "Youtube", Site: []string{"youtube"}},
		{Name: "Google", Site: []string{"google"}, IP: []string{"google"}},
		{Name: "Private", IP: []string{"private"}},
		{Name: "Location:CN", Site: []string{"geolocation-cn", "cn"}, IP: []string{"cn"}},
		{Name: "Telegram", IP: []string{"telegram"}},
		{Name: "Github", Site: []string{"github", "gitlab"}},
		{Name: "Microsoft", Site: []string{"microsoft"}},
		{Name: "Apple", Site: []string{"apple"}},
		{Name: "Social Media", Site: []string{"facebook", "instagram", "twitter", "tiktok", "linkedin"}},
		{Name: "Streaming", Site: []string{"netflix", "hulu", "disney", "hbo", "amazon", "bahamut"}},
		{Name: "Gaming", Site: []string{"steam", "epicgames", "ea", "ubisoft", "blizzard"}},
		{Name: "Education", Site: []string{"coursera", "edx", "udemy", "khanacademy", "category-scholar-!cn"}},
		{Name: "Financial", Site: []string{"paypal", "visa", "mastercard", "stripe", "wise"}},
		{Name: "Cloud Services", Site: []string{"aws", "azure", "digitalocean", "heroku", "dropbox"}},
		{Name: "Non-China", Site: []string{"geolocation-!cn"}},
	}
}

func DefaultBindings() map[string]string {
	return map[string]string{
		"Location:CN": model.Direct,
		"Private":     model.Direct,
		"Bilibili":    model.Direct,
		"Ad Block":    model.Reject,
	}
}

func DefaultCatalog() Catalog {
	cats := DefaultCategories()
	all := make([]string, 0, len(cats))
	for _, c := range cats {
		all = append(all, c.Name)
	}
	return Catalog{
		Categories: cats,
		Presets: map[string][]string{
			PresetMinimal:       {"Location:CN", "Private", "Non-China"},
			PresetBalanced:      {"Location:CN", "Private", "Non-China", "Github", "Google", "Youtube", "AI Services", "Telegram"},
			PresetComprehensive: all,
		},
		Bindings: DefaultBindings(),
	}
}

func (c Catalog) Lookup(name string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return Category{}, false
}

func (c Catalog) PresetNames() []string {
	out := make([]string, 0, len(c.Presets))
	for k := range c.Presets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Selection names the categories of a run: a preset, explicit names, or
// both (the union). An empty selection means the minimal preset.
type Selection struct {
	Preset     string
	Categories []string
}

// Resolve expands sel against the catalog. The result keeps selection order
// without duplicates; unknown names are dropped and reported.
func (c Catalog) Resolve(sel Selection) ([]string, []model.Diagnostic) {
	var diags []model.Diagnostic
	var names []string

	preset := strings.TrimSpace(sel.Preset)
	if preset != "" {
		list, ok := c.Presets[strings.ToLower(preset)]
		if !ok {
			diags = append(diags, unresolved(preset, "未知的规则预设："+preset))
		}
		names = append(names, list...)
	}
	for _, n := range sel.Categories {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		// A bare preset name in the list expands in place.
		if list, ok := c.Presets[strings.ToLower(n)]; ok {
			if _, isCat := c.Lookup(n); !isCat {
				names = append(names, list...)
				continue
			}
		}
		names = append(names, n)
	}
	if len(names) == 0 {
		names = append(names, c.Presets[PresetMinimal]...)
	}

	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		if _, ok := c.Lookup(n); !ok {
			diags = append(diags, unresolved(n, "规则分类不存在，已忽略："+n))
			continue
		}
		out = append(out, n)
	}
	return out, diags
}

func unresolved(subject, msg string) model.Diagnostic {
	return model.Diagnostic{
		Code:    model.CodeUnresolvedCategory,
		Stage:   "rules",
		Subject: subject,
		Message: msg,
	}
}
