package compiler

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/John-Robertt/clashforge/internal/groups"
	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/John-Robertt/clashforge/internal/normalize"
	"github.com/John-Robertt/clashforge/internal/rules"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func ssDesc(tag, server string, port int, password string) model.Descriptor {
	return model.Descriptor{Type: "shadowsocks", Tag: tag, Server: server, ServerPort: port, Password: password}
}

func TestCompile_DuplicateAndRename(t *testing.T) {
	got, err := Compile(Input{
		Descriptors: []model.Descriptor{
			ssDesc("X", "x.example.com", 8388, "pw"),
			ssDesc("X", "x.example.com", 8388, "pw"),
			ssDesc("X", "y.example.com", 8388, "pw"),
		},
	}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var names []string
	for _, p := range got.Proxies {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"X", "X 2"}, names); diff != "" {
		t.Fatalf("proxy names mismatch (-want +got):\n%s", diff)
	}
	if len(got.Diagnostics) != 1 || got.Diagnostics[0].Code != model.CodeDuplicateProxy {
		t.Fatalf("diagnostics=%v", got.Diagnostics)
	}
}

func TestCompile_LocationCNTargetsDirect(t *testing.T) {
	got, err := Compile(Input{
		Descriptors: []model.Descriptor{ssDesc("🇭🇰 HK", "hk", 1, "pw")},
		Selection:   rules.Selection{Categories: []string{"Location:CN"}},
	}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fallback := got.Groups[len(got.Groups)-1].Name
	for i, r := range got.Rules {
		if i == len(got.Rules)-1 {
			if r.Matcher != model.MatchAll || r.Target != fallback {
				t.Fatalf("last rule=%s, want MATCH,%s", r, fallback)
			}
			continue
		}
		if r.Target != model.Direct {
			t.Fatalf("rule %d=%s, want DIRECT target", i, r)
		}
	}
}

func TestCompile_NamedCustomRuleWithCategory(t *testing.T) {
	got, err := Compile(Input{
		Descriptors: []model.Descriptor{ssDesc("A", "a.example.com", 1, "pw"), ssDesc("B", "b.example.com", 2, "pw")},
		Selection:   rules.Selection{Categories: []string{"Google"}},
		Customs:     []rules.CustomRule{{Name: "MyRule", Category: "Google", DomainSuffix: "example.com"}},
	}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var manual string
	var custom *model.Group
	for i, g := range got.Groups {
		if g.Role == model.RoleManualSelect {
			manual = g.Name
		}
		if g.Name == "MyRule" {
			custom = &got.Groups[i]
		}
	}
	if custom == nil {
		t.Fatalf("no group for named custom rule, groups=%v", got.Groups)
	}
	if diff := cmp.Diff([]string{manual, "A", "B"}, custom.Members); diff != "" {
		t.Fatalf("custom group members mismatch (-want +got):\n%s", diff)
	}

	targets := make(map[string]string)
	for _, r := range got.Rules {
		targets[r.Value] = r.Target
	}
	if targets["example.com"] == "" || targets["example.com"] != targets["geosite-google"] {
		t.Fatalf("custom rule target=%q, google target=%q", targets["example.com"], targets["geosite-google"])
	}
}

func TestCompile_LogsToInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	_, err := Compile(Input{
		Descriptors: []model.Descriptor{ssDesc("X", "x.example.com", 1, "pw"), ssDesc("X", "x.example.com", 1, "pw")},
	}, Options{Logger: &logger})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"component":"compiler"`, `"component":"dedup"`, `"component":"groups"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestCompile_EmptyInput(t *testing.T) {
	got, err := Compile(Input{}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Proxies) != 0 {
		t.Fatalf("proxies=%d", len(got.Proxies))
	}
	if len(got.Groups) == 0 || len(got.Rules) == 0 {
		t.Fatalf("groups=%d rules=%d, want a minimal usable set", len(got.Groups), len(got.Rules))
	}
	if err := Verify(got); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestCompile_UnknownKindsPolicy(t *testing.T) {
	in := Input{Descriptors: []model.Descriptor{
		{Type: "wireguard", Tag: "wg", Server: "w", ServerPort: 51820},
		ssDesc("ok", "s", 1, "pw"),
	}}

	got, err := Compile(in, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Proxies) != 1 || got.Diagnostics[0].Code != model.CodeUnsupportedKind {
		t.Fatalf("strict: proxies=%d diagnostics=%v", len(got.Proxies), got.Diagnostics)
	}

	cfg := DefaultConfig()
	cfg.Normalize.UnknownKinds = normalize.PolicyPassthrough
	got, err = Compile(in, Options{Config: &cfg})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Proxies) != 2 || got.Proxies[0].Type != "wireguard" {
		t.Fatalf("passthrough: proxies=%+v", got.Proxies)
	}
}

func TestCompile_DoesNotMutateConfig(t *testing.T) {
	cfg := DefaultConfig()
	before := DefaultConfig()
	cfg.Groups.PreferredRegions = []string{"SG"}
	before.Groups.PreferredRegions = []string{"SG"}

	_, err := Compile(Input{
		Descriptors: []model.Descriptor{ssDesc("🇸🇬 SG", "sg", 1, "pw"), ssDesc("🇭🇰 HK", "hk", 1, "pw")},
		Selection:   rules.Selection{Preset: rules.PresetComprehensive},
		Customs:     []rules.CustomRule{{Name: "Mine", DomainSuffix: "x.com"}},
	}, Options{Config: &cfg})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(before, cfg); diff != "" {
		t.Fatalf("config mutated (-before +after):\n%s", diff)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	in := Input{
		Descriptors: []model.Descriptor{
			ssDesc("🇭🇰 HK", "hk", 1, "pw"),
			ssDesc("🇺🇸 US", "us", 1, "pw"),
			{Type: "vmess", Tag: "🇸🇬 SG", Server: "sg", ServerPort: 443, UUID: "b831381d-6324-4d53-ad4f-8cda48b30811"},
		},
		Selection: rules.Selection{Preset: rules.PresetBalanced},
		Customs:   []rules.CustomRule{{Name: "Mine", DomainSuffix: "x.com", IPCIDR: "1.1.1.0/24"}},
	}
	a, err := Compile(in, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Compile(in, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("results differ:\n%s", diff)
	}
}

func TestCompile_InvalidGroupConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Groups.NoisePattern = "("
	_, err := Compile(Input{}, Options{Config: &cfg})
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("err=%v, want *CompileError", err)
	}
	var ge *groups.ConfigError
	if !errors.As(err, &ge) {
		t.Fatalf("err=%v, want wrapped *groups.ConfigError", err)
	}
}

func TestNormalizeProxies(t *testing.T) {
	proxies, diags := NormalizeProxies([]model.Descriptor{
		ssDesc("a", "h", 1, "pw"),
		ssDesc("b", "h", 1, "pw"),
		{Type: "vmess", Server: "v", ServerPort: 1, UUID: "bad"},
	}, Options{})
	if len(proxies) != 1 || proxies[0].Name != "a" {
		t.Fatalf("proxies=%+v", proxies)
	}
	if len(diags) != 2 {
		t.Fatalf("diags=%v", diags)
	}
}

func TestVerify(t *testing.T) {
	ok := func() *Result {
		return &Result{
			Proxies: []model.Proxy{{Name: "p"}},
			Groups:  []model.Group{{Name: "G", Members: []string{"p", "DIRECT"}}},
			Rules: []model.Rule{
				{Matcher: model.MatchDomain, Value: "a.com", Target: "G"},
				{Matcher: model.MatchAll, Target: "G"},
			},
		}
	}
	if err := Verify(ok()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(r *Result)
		code   string
	}{
		{"dup proxy", func(r *Result) { r.Proxies = append(r.Proxies, model.Proxy{Name: "p"}) }, "DUPLICATE_NAME"},
		{"group shadows proxy", func(r *Result) { r.Groups = append(r.Groups, model.Group{Name: "p", Members: []string{"DIRECT"}}) }, "DUPLICATE_NAME"},
		{"sentinel proxy", func(r *Result) { r.Proxies[0].Name = "DIRECT"; r.Groups[0].Members = []string{"DIRECT"} }, "DUPLICATE_NAME"},
		{"dangling member", func(r *Result) { r.Groups[0].Members = append(r.Groups[0].Members, "ghost") }, "REFERENCE_NOT_FOUND"},
		{"empty group", func(r *Result) { r.Groups[0].Members = nil }, "REFERENCE_NOT_FOUND"},
		{"dangling target", func(r *Result) { r.Rules[0].Target = "ghost" }, "REFERENCE_NOT_FOUND"},
		{"proxy as target", func(r *Result) { r.Rules[0].Target = "p" }, "REFERENCE_NOT_FOUND"},
		{"match first", func(r *Result) { r.Rules[0], r.Rules[1] = r.Rules[1], r.Rules[0] }, "MATCH_NOT_LAST"},
		{"no match", func(r *Result) { r.Rules = r.Rules[:1] }, "MATCH_NOT_LAST"},
		{"no rules", func(r *Result) { r.Rules = nil }, "MATCH_NOT_LAST"},
	}
	for _, tc := range cases {
		r := ok()
		tc.mutate(r)
		err := Verify(r)
		var ce *CompileError
		if !errors.As(err, &ce) {
			t.Fatalf("%s: err=%v, want *CompileError", tc.name, err)
		}
		if ce.AppError.Code != tc.code {
			t.Fatalf("%s: code=%q, want=%q", tc.name, ce.AppError.Code, tc.code)
		}
	}
}
