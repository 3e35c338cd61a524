// Package groups builds the proxy-group hierarchy of one compilation run:
// manual select, global and per-region latency probes, category groups,
// custom-rule groups and the fallback group.
package groups

import (
	"sort"
	"strings"

	"github.com/John-Robertt/clashforge/internal/dedup"
	"github.com/John-Robertt/clashforge/internal/i18n"
	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/rs/zerolog"
)

// Category identifiers that name the manual-select and fallback roles
// themselves; a selection of either never yields a category group.
const (
	CategoryNodeSelect = "Node Select"
	CategoryFallBack   = "Fall Back"
)

type Input struct {
	Proxies    []string // accepted display names, insertion order
	Categories []string // resolved category identifiers, selection order
	Customs    []string // custom rule group names, input order
}

type Result struct {
	Groups []model.Group

	ManualSelect string
	AutoSelect   string
	Fallback     string

	// Categories and Customs map a category identifier or custom rule
	// name to the group built for it.
	Categories map[string]string
	Customs    map[string]string

	Diagnostics []model.Diagnostic
}

type Builder struct {
	cfg    Config
	c      *compiled
	loc    i18n.Localizer
	logger zerolog.Logger
}

func NewBuilder(cfg Config, loc i18n.Localizer, logger zerolog.Logger) (*Builder, error) {
	cfg = cfg.withDefaults()
	c, err := compileConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Builder{
		cfg:    cfg,
		c:      c,
		loc:    loc,
		logger: logger.With().Str("component", "groups").Logger(),
	}, nil
}

// Build never fails: with no proxies it still returns a complete group set
// whose probe groups fall back to DIRECT.
func (b *Builder) Build(in Input) Result {
	st := &buildState{
		b:     b,
		names: dedup.NewNamer(append([]string{model.Direct, model.Reject}, in.Proxies...)...),
		res: Result{
			Categories: make(map[string]string),
			Customs:    make(map[string]string),
		},
	}

	all := b.sortByPreference(in.Proxies)
	probe := b.probeCandidates(all)

	// Members are computed before names are claimed so the claim order
	// follows the final group order.
	type regionGroup struct {
		region  compiledRegion
		members []string
	}
	var regions []regionGroup
	for _, r := range b.orderedRegions() {
		var members []string
		for _, name := range probe {
			if r.re.MatchString(name) {
				members = append(members, name)
			}
		}
		if len(members) == 0 {
			b.logger.Debug().Str("region", r.Key).Msg("no proxies matched; region group skipped")
			continue
		}
		regions = append(regions, regionGroup{region: r, members: members})
	}

	manual := st.claim(i18n.KeyNodeSelect)
	regionNames := make(map[string]string, len(regions))
	var regionOrder []string
	for _, rg := range regions {
		var name string
		if rg.region.Label != "" {
			name, _ = st.names.Claim(rg.region.Label)
		} else {
			name = st.claim(i18n.RegionKey(rg.region.Key))
		}
		regionNames[rg.region.Key] = name
		regionOrder = append(regionOrder, name)
	}
	auto := st.claim(i18n.KeyAutoSelect)

	st.res.ManualSelect = manual
	st.res.AutoSelect = auto

	st.add(model.Group{
		Name:    manual,
		Role:    model.RoleManualSelect,
		Type:    "select",
		Members: uniq(regionOrder, []string{auto, model.Direct, model.Reject}, all),
	})
	for i, rg := range regions {
		st.add(b.probeGroup(regionOrder[i], model.RoleRegionProbe, rg.members))
	}
	st.add(b.probeGroup(auto, model.RoleLatencyProbe, probe))

	seenCategory := make(map[string]struct{}, len(in.Categories))
	for _, cat := range in.Categories {
		if cat == CategoryNodeSelect || cat == CategoryFallBack {
			continue
		}
		if _, dup := seenCategory[cat]; dup {
			continue
		}
		seenCategory[cat] = struct{}{}

		name := st.claim(i18n.OutboundKey(cat))
		st.res.Categories[cat] = name
		st.add(model.Group{
			Name:    name,
			Role:    model.RoleCategorySelect,
			Type:    "select",
			Members: b.categoryMembers(cat, manual, auto, all, regionNames),
		})
	}

	for _, custom := range in.Customs {
		custom = strings.TrimSpace(custom)
		if custom == "" {
			continue
		}
		if _, done := st.res.Customs[custom]; done {
			continue
		}
		name, _ := st.names.Claim(custom)
		st.res.Customs[custom] = name
		st.add(model.Group{
			Name:    name,
			Role:    model.RoleCategorySelect,
			Type:    "select",
			Members: uniq([]string{manual}, all),
		})
	}

	fallback := st.claim(i18n.KeyFallBack)
	st.res.Fallback = fallback
	fb := model.Group{
		Name:    fallback,
		Role:    model.RoleFallback,
		Type:    "select",
		Members: uniq([]string{manual}, all),
	}
	if b.cfg.Fallback == FallbackProbe {
		fb.Type = "fallback"
		fb.TestURL = b.cfg.Probe.URL
		fb.IntervalSec = b.cfg.Probe.IntervalSec
		fb.Lazy = b.cfg.Probe.Lazy
	}
	st.add(fb)

	return st.res
}

type buildState struct {
	b     *Builder
	names *dedup.Namer
	res   Result
	index map[string]int
}

// claim localizes key and reserves the resulting group name.
func (st *buildState) claim(key string) string {
	label, ok := i18n.Label(st.b.loc, key)
	if !ok {
		st.res.Diagnostics = append(st.res.Diagnostics, model.Diagnostic{
			Code:    model.CodeLocalizationMiss,
			Stage:   "groups",
			Subject: key,
			Message: "未找到显示名称，使用原始 key",
		})
	}
	name, renamed := st.names.Claim(label)
	if renamed {
		st.b.logger.Debug().Str("label", label).Str("name", name).Msg("group renamed")
	}
	return name
}

func (st *buildState) add(g model.Group) {
	if st.index == nil {
		st.index = make(map[string]int)
	}
	if _, ok := st.index[g.Name]; ok {
		return
	}
	st.index[g.Name] = len(st.res.Groups)
	st.res.Groups = append(st.res.Groups, g)
}

func (b *Builder) probeGroup(name string, role model.Role, members []string) model.Group {
	if len(members) == 0 {
		members = []string{model.Direct}
	}
	return model.Group{
		Name:         name,
		Role:         role,
		Type:         "url-test",
		Members:      append([]string(nil), members...),
		TestURL:      b.cfg.Probe.URL,
		IntervalSec:  b.cfg.Probe.IntervalSec,
		ToleranceMS:  b.cfg.Probe.ToleranceMS,
		HasTolerance: b.cfg.Probe.ToleranceMS > 0,
		Lazy:         b.cfg.Probe.Lazy,
	}
}

func (b *Builder) categoryMembers(cat, manual, auto string, all []string, regionNames map[string]string) []string {
	for _, re := range b.c.locality {
		if re.MatchString(cat) {
			return []string{model.Direct}
		}
	}
	var preferred []string
	for _, a := range b.c.affinities {
		if !a.re.MatchString(cat) {
			continue
		}
		for _, key := range a.regions {
			if name, ok := regionNames[key]; ok {
				preferred = append(preferred, name)
			}
		}
	}
	return uniq(preferred, []string{manual, auto, model.Direct, model.Reject}, all)
}

func (b *Builder) probeCandidates(names []string) []string {
	if b.c.noise == nil {
		return append([]string(nil), names...)
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if b.c.noise.MatchString(n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// preferenceRank returns the index of the first preferred region matching
// name, or len(PreferredRegions) when none does. An entry that is not a
// region key is matched as a plain substring.
func (b *Builder) preferenceRank(name string) int {
	for i, pref := range b.cfg.PreferredRegions {
		if r, ok := b.regionByKey(pref); ok {
			if r.re.MatchString(name) {
				return i
			}
			continue
		}
		if pref != "" && strings.Contains(name, pref) {
			return i
		}
	}
	return len(b.cfg.PreferredRegions)
}

func (b *Builder) regionByKey(key string) (compiledRegion, bool) {
	for _, r := range b.c.regions {
		if strings.EqualFold(r.Key, key) {
			return r, true
		}
	}
	return compiledRegion{}, false
}

func (b *Builder) sortByPreference(names []string) []string {
	out := append([]string(nil), names...)
	if len(b.cfg.PreferredRegions) == 0 {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return b.preferenceRank(out[i]) < b.preferenceRank(out[j])
	})
	return out
}

// orderedRegions puts preferred regions first, then the rest in
// configuration order.
func (b *Builder) orderedRegions() []compiledRegion {
	out := make([]compiledRegion, 0, len(b.c.regions))
	used := make(map[string]struct{}, len(b.c.regions))
	for _, pref := range b.cfg.PreferredRegions {
		if r, ok := b.regionByKey(pref); ok {
			if _, dup := used[r.Key]; !dup {
				used[r.Key] = struct{}{}
				out = append(out, r)
			}
		}
	}
	for _, r := range b.c.regions {
		if _, dup := used[r.Key]; !dup {
			out = append(out, r)
		}
	}
	return out
}

// uniq concatenates lists keeping the first occurrence of each name.
func uniq(lists ...[]string) []string {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for _, l := range lists {
		for _, s := range l {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
