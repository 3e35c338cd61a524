package profile

import (
	"errors"
	"testing"

	"github.com/John-Robertt/clashforge/internal/groups"
	"github.com/John-Robertt/clashforge/internal/normalize"
	"github.com/google/go-cmp/cmp"
)

func TestParse_YAML_OK(t *testing.T) {
	yml := `
version: 1
lang: en-US
rules:
  preset: balanced
  categories: [Gaming]
custom_rules:
  - name: Work
    domain_suffix: corp.example.com, vpn.example.com
    ip_cidr: 10.0.0.0/8
  - category: Location:CN
    domain: cn.example.com
    rules:
      - "GEOIP,CN"
preferred_regions: [SG, US]
unknown_kinds: passthrough
identity: transport
fallback: probe
probe:
  url: https://cp.cloudflare.com/generate_204
  interval: 600
  tolerance: 50
exclude_pattern: "(?i)expire"
`
	p, err := Parse("profile.yaml", yml, FormatAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Lang != "en-US" {
		t.Fatalf("lang=%q", p.Lang)
	}
	if p.Selection.Preset != "balanced" || len(p.Selection.Categories) != 1 {
		t.Fatalf("selection=%+v", p.Selection)
	}
	if len(p.Customs) != 2 || p.Customs[0].Name != "Work" || p.Customs[1].Rules[0] != "GEOIP,CN" {
		t.Fatalf("customs=%+v", p.Customs)
	}
	if p.UnknownKinds != normalize.PolicyPassthrough || !p.Identity.IncludeTransport {
		t.Fatalf("policy=%q identity=%+v", p.UnknownKinds, p.Identity)
	}
	if p.Groups.Fallback != groups.FallbackProbe {
		t.Fatalf("fallback=%q", p.Groups.Fallback)
	}
	if p.Groups.Probe.URL != "https://cp.cloudflare.com/generate_204" || p.Groups.Probe.IntervalSec != 600 || p.Groups.Probe.ToleranceMS != 50 {
		t.Fatalf("probe=%+v", p.Groups.Probe)
	}
	if p.Groups.NoisePattern != "(?i)expire" {
		t.Fatalf("noise=%q", p.Groups.NoisePattern)
	}
	if diff := cmp.Diff([]string{"SG", "US"}, p.Groups.PreferredRegions); diff != "" {
		t.Fatalf("preferred mismatch (-want +got):\n%s", diff)
	}
	if len(p.Groups.Regions) != len(groups.DefaultRegions()) {
		t.Fatalf("regions=%d, want defaults", len(p.Groups.Regions))
	}

	cfg := p.Config()
	if cfg.Normalize.UnknownKinds != normalize.PolicyPassthrough || len(cfg.Catalog.Categories) == 0 {
		t.Fatalf("config=%+v", cfg.Normalize)
	}
}

func TestParse_YAML_Minimal(t *testing.T) {
	p, err := Parse("p.yaml", "version: 1\n", FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Default()
	if diff := cmp.Diff(want, p); diff != "" {
		t.Fatalf("minimal profile differs from Default (-want +got):\n%s", diff)
	}
}

func TestParse_YAML_Errors(t *testing.T) {
	cases := []struct {
		name string
		yml  string
		code string
	}{
		{"empty", "", "PROFILE_PARSE_ERROR"},
		{"unknown field", "version: 1\nfoo: bar\n", "PROFILE_PARSE_ERROR"},
		{"multi doc", "version: 1\n---\nversion: 1\n", "PROFILE_PARSE_ERROR"},
		{"version", "version: 2\n", "PROFILE_VALIDATE_ERROR"},
		{"unknown kinds", "version: 1\nunknown_kinds: drop\n", "PROFILE_VALIDATE_ERROR"},
		{"identity", "version: 1\nidentity: everything\n", "PROFILE_VALIDATE_ERROR"},
		{"fallback", "version: 1\nfallback: random\n", "PROFILE_VALIDATE_ERROR"},
		{"probe url", "version: 1\nprobe:\n  url: ftp://x\n", "PROFILE_VALIDATE_ERROR"},
		{"bad regex", "version: 1\nexclude_pattern: \"(\"\n", "PROFILE_VALIDATE_ERROR"},
		{"custom nameless", "version: 1\ncustom_rules:\n  - domain: a.com\n", "PROFILE_VALIDATE_ERROR"},
		{"custom sentinel", "version: 1\ncustom_rules:\n  - name: DIRECT\n", "PROFILE_VALIDATE_ERROR"},
		{"custom dup", "version: 1\ncustom_rules:\n  - name: A\n  - name: A\n", "PROFILE_VALIDATE_ERROR"},
		{"custom unknown field", "version: 1\ncustom_rules:\n  - name: A\n    protocol: tcp\n", "PROFILE_PARSE_ERROR"},
	}
	for _, tc := range cases {
		_, err := Parse("p.yaml", tc.yml, FormatYAML)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: expected *ParseError, got %T: %v", tc.name, err, err)
		}
		if pe.AppError.Code != tc.code {
			t.Fatalf("%s: code=%q, want=%q", tc.name, pe.AppError.Code, tc.code)
		}
		if pe.AppError.Stage != "parse_profile" {
			t.Fatalf("%s: stage=%q", tc.name, pe.AppError.Stage)
		}
	}
}

func TestParse_INI_OK(t *testing.T) {
	src := `
; clashforge profile
[general]
version = 1
preset = minimal
categories = Github, Google
preferred_regions = HK
fallback = select

[probe]
interval = 120
lazy = true

[region "HK"]
pattern = (?i)hong kong|🇭🇰
label = HK Auto

[affinity "media"]
pattern = (?i)youtube
regions = HK

[custom "Work"]
domain_suffix = corp.example.com
rule = DOMAIN-KEYWORD,intranet
rule = IP-CIDR,10.0.0.0/8,no-resolve
`
	p, err := Parse("profile.ini", src, FormatAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Selection.Preset != "minimal" {
		t.Fatalf("preset=%q", p.Selection.Preset)
	}
	if diff := cmp.Diff([]string{"Github", "Google"}, p.Selection.Categories); diff != "" {
		t.Fatalf("categories mismatch (-want +got):\n%s", diff)
	}
	if p.Groups.Probe.IntervalSec != 120 || !p.Groups.Probe.Lazy {
		t.Fatalf("probe=%+v", p.Groups.Probe)
	}
	wantRegions := []groups.Region{{Key: "HK", Label: "HK Auto", Pattern: "(?i)hong kong|🇭🇰"}}
	if diff := cmp.Diff(wantRegions, p.Groups.Regions); diff != "" {
		t.Fatalf("regions mismatch (-want +got):\n%s", diff)
	}
	if len(p.Groups.Affinities) != 1 || p.Groups.Affinities[0].Regions[0] != "HK" {
		t.Fatalf("affinities=%+v", p.Groups.Affinities)
	}
	if len(p.Customs) != 1 {
		t.Fatalf("customs=%+v", p.Customs)
	}
	c := p.Customs[0]
	if c.Name != "Work" || c.DomainSuffix != "corp.example.com" {
		t.Fatalf("custom=%+v", c)
	}
	if diff := cmp.Diff([]string{"DOMAIN-KEYWORD,intranet", "IP-CIDR,10.0.0.0/8,no-resolve"}, c.Rules); diff != "" {
		t.Fatalf("custom rules mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_INI_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"unknown section", "[general]\nversion = 1\n[extra]\nx = 1\n"},
		{"unknown key", "[general]\nversion = 1\ncolour = red\n"},
		{"bad int", "[general]\nversion = one\n"},
		{"region without key", "[general]\nversion = 1\n[region]\npattern = x\n"},
		{"keys outside section", "version = 1\n[general]\n"},
	}
	for _, tc := range cases {
		_, err := Parse("p.ini", tc.src, FormatINI)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: expected *ParseError, got %T: %v", tc.name, err, err)
		}
		if pe.AppError.Code != "PROFILE_PARSE_ERROR" {
			t.Fatalf("%s: code=%q", tc.name, pe.AppError.Code)
		}
	}
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		source, content string
		want            Format
	}{
		{"x.ini", "version: 1", FormatINI},
		{"x", "# c\n\n[general]\n", FormatINI},
		{"x", "version: 1\n", FormatYAML},
		{"x", "", FormatYAML},
	}
	for _, tc := range cases {
		if got := DetectFormat(tc.source, tc.content); got != tc.want {
			t.Fatalf("DetectFormat(%q,%q)=%q, want=%q", tc.source, tc.content, got, tc.want)
		}
	}
}
