package convert

import (
	"strings"
	"testing"

	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/John-Robertt/clashforge/internal/profile"
	"github.com/John-Robertt/clashforge/internal/render"
	"gopkg.in/yaml.v3"
)

func descriptors() []model.Descriptor {
	return []model.Descriptor{
		{Type: "shadowsocks", Tag: "🇭🇰 香港 01", Server: "hk.example.com", ServerPort: 8388, Method: "aes-128-gcm", Password: "p1"},
		{Type: "shadowsocks", Tag: "🇺🇸 US 01", Server: "us.example.com", ServerPort: 8388, Method: "aes-128-gcm", Password: "p2"},
		{Type: "shadowsocks", Tag: "dup", Server: "HK.example.com", ServerPort: 8388, Method: "aes-128-gcm", Password: "p1"},
		{Type: "wireguard", Tag: "wg", Server: "wg.example.com", ServerPort: 51820},
	}
}

func TestConfig_DefaultProfile(t *testing.T) {
	out, err := Config(descriptors(), nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc struct {
		Proxies       []map[string]any `yaml:"proxies"`
		ProxyGroups   []map[string]any `yaml:"proxy-groups"`
		RuleProviders map[string]any   `yaml:"rule-providers"`
		Rules         []string         `yaml:"rules"`
	}
	if err := yaml.Unmarshal([]byte(out.Text), &doc); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out.Text)
	}
	if len(doc.Proxies) != 2 {
		t.Fatalf("proxies=%d, want=2 (dup and wireguard dropped)", len(doc.Proxies))
	}
	if len(doc.ProxyGroups) == 0 || doc.ProxyGroups[0]["name"] != "🚀 节点选择" {
		t.Fatalf("first group=%v", doc.ProxyGroups[0])
	}
	if len(doc.RuleProviders) == 0 {
		t.Fatalf("minimal preset should reference rule-sets")
	}
	if last := doc.Rules[len(doc.Rules)-1]; !strings.HasPrefix(last, "MATCH,") {
		t.Fatalf("last rule=%q", last)
	}

	codes := map[string]int{}
	for _, d := range out.Result.Diagnostics {
		codes[d.Code]++
	}
	if codes[model.CodeDuplicateProxy] != 1 || codes[model.CodeUnsupportedKind] != 1 {
		t.Fatalf("diagnostics=%+v", out.Result.Diagnostics)
	}
}

func TestConfig_ProfileLangAndTemplate(t *testing.T) {
	spec, err := profile.Parse("p.yaml", "version: 1\nlang: en-US\n", profile.FormatYAML)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	tmpl := "mode: rule\nproxies:\n  #@PROXIES@#\nproxy-groups:\n  #@GROUPS@#\nrule-providers:\n  #@PROVIDERS@#\nrules:\n  #@RULES@#\n"
	out, err := Config(descriptors(), spec, Options{Template: tmpl})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.Text, "mode: rule\n") {
		t.Fatalf("custom template not used:\n%s", out.Text)
	}
	if !strings.Contains(out.Text, "🚀 Node Select") {
		t.Fatalf("en-US labels missing:\n%s", out.Text)
	}
}

func TestList(t *testing.T) {
	text, diags, err := List(descriptors(), nil, render.ListCSV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := strings.Count(strings.TrimSpace(text), "\n"); n != 2 {
		t.Fatalf("csv lines=%d, want header+2:\n%s", n+1, text)
	}
	if len(diags) != 2 {
		t.Fatalf("diags=%+v", diags)
	}

	spec, err := profile.Parse("p.yaml", "version: 1\nunknown_kinds: passthrough\n", profile.FormatYAML)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	text, _, err = List(descriptors(), spec, render.ListYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "type: wireguard") {
		t.Fatalf("passthrough entry missing:\n%s", text)
	}
}
