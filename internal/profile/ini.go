package profile

import (
	"fmt"
	"strings"

	"github.com/John-Robertt/clashforge/internal/groups"
	"github.com/John-Robertt/clashforge/internal/rules"
	"gopkg.in/ini.v1"
)

// INI layout:
//
//	[general]          version, lang, preset, categories, preferred_regions,
//	                   unknown_kinds, identity, fallback, exclude_pattern
//	[probe]            url, interval, tolerance, lazy
//	[region "HK"]      pattern, label
//	[affinity "media"] pattern, regions
//	[custom "Name"]    category, domain, domain_suffix, domain_keyword, site,
//	                   ip, ip_cidr, geoip, rule (repeatable)
//
// List values are comma-separated.
var iniKeys = map[string][]string{
	"general":  {"version", "lang", "preset", "categories", "preferred_regions", "unknown_kinds", "identity", "fallback", "exclude_pattern"},
	"probe":    {"url", "interval", "tolerance", "lazy"},
	"region":   {"pattern", "label"},
	"affinity": {"pattern", "regions"},
	"custom":   {"category", "domain", "domain_suffix", "domain_keyword", "site", "ip", "ip_cidr", "geoip", "rule"},
}

func decodeINI(content string, out *rawProfile) error {
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowShadows:             true,
		SpaceBeforeInlineComment: true,
	}, []byte(content))
	if err != nil {
		return err
	}

	for _, sec := range f.Sections() {
		kind, arg := splitSectionName(sec.Name())
		if kind == strings.ToLower(ini.DefaultSection) {
			if len(sec.Keys()) > 0 {
				return fmt.Errorf("keys outside of a section: %s", strings.Join(sec.KeyStrings(), ", "))
			}
			continue
		}
		allowed, ok := iniKeys[kind]
		if !ok {
			return fmt.Errorf("unknown section [%s]", sec.Name())
		}
		if err := checkKeys(sec, allowed); err != nil {
			return err
		}

		switch kind {
		case "general":
			if arg != "" {
				return fmt.Errorf("section [general] takes no name")
			}
			if sec.HasKey("version") {
				v, err := sec.Key("version").Int()
				if err != nil {
					return fmt.Errorf("[general] version: %w", err)
				}
				out.Version = v
			}
			out.Lang = sec.Key("lang").String()
			out.Rules.Preset = sec.Key("preset").String()
			out.Rules.Categories = listValue(sec, "categories")
			out.PreferredRegions = listValue(sec, "preferred_regions")
			out.UnknownKinds = sec.Key("unknown_kinds").String()
			out.Identity = sec.Key("identity").String()
			out.Fallback = sec.Key("fallback").String()
			if sec.HasKey("exclude_pattern") {
				p := sec.Key("exclude_pattern").String()
				out.ExcludePattern = &p
			}
		case "probe":
			p := &rawProbe{URL: sec.Key("url").String()}
			if sec.HasKey("interval") {
				if p.Interval, err = sec.Key("interval").Int(); err != nil {
					return fmt.Errorf("[probe] interval: %w", err)
				}
			}
			if sec.HasKey("tolerance") {
				if p.Tolerance, err = sec.Key("tolerance").Int(); err != nil {
					return fmt.Errorf("[probe] tolerance: %w", err)
				}
			}
			if sec.HasKey("lazy") {
				if p.Lazy, err = sec.Key("lazy").Bool(); err != nil {
					return fmt.Errorf("[probe] lazy: %w", err)
				}
			}
			out.Probe = p
		case "region":
			if arg == "" {
				return fmt.Errorf("section [region] needs a key, e.g. [region \"HK\"]")
			}
			out.Regions = append(out.Regions, groups.Region{
				Key:     arg,
				Label:   sec.Key("label").String(),
				Pattern: sec.Key("pattern").String(),
			})
		case "affinity":
			out.Affinities = append(out.Affinities, groups.Affinity{
				Pattern: sec.Key("pattern").String(),
				Regions: listValue(sec, "regions"),
			})
		case "custom":
			cr := rules.CustomRule{
				Name:          arg,
				Category:      sec.Key("category").String(),
				Domain:        sec.Key("domain").String(),
				DomainSuffix:  sec.Key("domain_suffix").String(),
				DomainKeyword: sec.Key("domain_keyword").String(),
				Site:          sec.Key("site").String(),
				IP:            sec.Key("ip").String(),
				IPCIDR:        sec.Key("ip_cidr").String(),
				GeoIP:         sec.Key("geoip").String(),
			}
			if sec.HasKey("rule") {
				cr.Rules = sec.Key("rule").ValueWithShadows()
			}
			out.CustomRules = append(out.CustomRules, cr)
		}
	}
	return nil
}

// splitSectionName splits `custom "My Rule"` into ("custom", "My Rule").
func splitSectionName(name string) (kind, arg string) {
	kind, arg, _ = strings.Cut(strings.TrimSpace(name), " ")
	arg = strings.TrimSpace(arg)
	arg = strings.TrimPrefix(arg, `"`)
	arg = strings.TrimSuffix(arg, `"`)
	return strings.ToLower(kind), arg
}

func checkKeys(sec *ini.Section, allowed []string) error {
	for _, k := range sec.KeyStrings() {
		found := false
		for _, a := range allowed {
			if k == a {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("[%s] unknown key %q", sec.Name(), k)
		}
	}
	return nil
}

func listValue(sec *ini.Section, key string) []string {
	if !sec.HasKey(key) {
		return nil
	}
	return sec.Key(key).Strings(",")
}
