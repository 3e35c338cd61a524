package source

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestParseSubscription_RawList(t *testing.T) {
	raw := strings.Join([]string{
		"# comment",
		"  ",
		"ss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388#Node%201",
		"ss://YWVzLTEyOC1nY206cDI=@example.com:8389#Node%202",
		"",
	}, "\n")

	descs, err := ParseSubscription("https://example.com/sub.txt", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(descs) != 2 {
		t.Fatalf("len=%d, want=2", len(descs))
	}
	d := descs[0]
	if d.Type != "shadowsocks" {
		t.Fatalf("type=%q, want=%q", d.Type, "shadowsocks")
	}
	if d.Tag != "Node 1" {
		t.Fatalf("tag=%q, want=%q", d.Tag, "Node 1")
	}
	if d.Server != "example.com" || d.ServerPort != 8388 {
		t.Fatalf("server/port=%q/%d, want example.com/8388", d.Server, d.ServerPort)
	}
	if d.Method != "aes-128-gcm" || d.Password != "pass" {
		t.Fatalf("method/password=%q/%q, want aes-128-gcm/pass", d.Method, d.Password)
	}
}

func TestParseSubscription_Base64List(t *testing.T) {
	raw := "ss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388#Node%201\n"
	b64 := base64.StdEncoding.EncodeToString([]byte(raw))

	descs, err := ParseSubscription("https://example.com/sub.b64", b64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(descs) != 1 || descs[0].Tag != "Node 1" {
		t.Fatalf("descs=%+v", descs)
	}
}

func TestParseSubscription_Plugin(t *testing.T) {
	raw := "ss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388/?plugin=simple-obfs%3Bobfs%3Dtls%3Bobfs-host%3Dexample.com#obfs\n"
	descs, err := ParseSubscription("sub.txt", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if descs[0].Plugin != "simple-obfs" {
		t.Fatalf("plugin=%q, want=%q", descs[0].Plugin, "simple-obfs")
	}
	if descs[0].PluginOpts != "obfs=tls;obfs-host=example.com" {
		t.Fatalf("plugin_opts=%q", descs[0].PluginOpts)
	}
}

func TestParseSubscription_PluginBareFlag(t *testing.T) {
	raw := "ss://YWVzLTEyOC1nY206cGFzcw==@example.com:443/?plugin=v2ray-plugin%3Btls%3Bhost%3Dcdn.example.com#v2\n"
	descs, err := ParseSubscription("sub.txt", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if descs[0].PluginOpts != "tls;host=cdn.example.com" {
		t.Fatalf("plugin_opts=%q", descs[0].PluginOpts)
	}
}

func TestParseSubscription_LegacyForm(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString([]byte("aes-128-gcm:p@ss@ex.com:443"))
	descs, err := ParseSubscription("sub.txt", "ss://"+b64+"#old\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := descs[0]
	if d.Method != "aes-128-gcm" || d.Password != "p@ss" {
		t.Fatalf("method/password=%q/%q, want aes-128-gcm/p@ss", d.Method, d.Password)
	}
	if d.Server != "ex.com" || d.ServerPort != 443 {
		t.Fatalf("server/port=%q/%d, want ex.com/443", d.Server, d.ServerPort)
	}
}

func TestParseSubscription_IPv6(t *testing.T) {
	descs, err := ParseSubscription("sub.txt", "ss://YWVzLTEyOC1nY206cGFzcw==@[2001:db8::1]:8388#v6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if descs[0].Server != "2001:db8::1" {
		t.Fatalf("server=%q", descs[0].Server)
	}
}

func TestParseSubscription_Errors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		code string
		line int
	}{
		{"empty", "  \n", "SUB_PARSE_ERROR", 0},
		{"bad base64", "!!!not base64!!!", "SUB_BASE64_DECODE_ERROR", 0},
		{"other scheme", "ss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388#a\nvmess://abc", "SUB_UNSUPPORTED_SCHEME", 2},
		{"unknown query", "ss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388/?foo=bar#x", "SUB_PARSE_ERROR", 1},
		{"bad port", "ss://YWVzLTEyOC1nY206cGFzcw==@example.com:70000#x", "SUB_PARSE_ERROR", 1},
		{"path", "ss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388/x#x", "SUB_PARSE_ERROR", 1},
		{"only comments", "# ss://commented\n# b\n", "SUB_PARSE_ERROR", 0},
	}
	for _, tc := range cases {
		_, err := ParseSubscription("https://example.com/sub.txt", tc.raw)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: expected *ParseError, got %T: %v", tc.name, err, err)
		}
		if pe.AppError.Code != tc.code {
			t.Fatalf("%s: code=%q, want=%q", tc.name, pe.AppError.Code, tc.code)
		}
		if pe.AppError.Line != tc.line {
			t.Fatalf("%s: line=%d, want=%d", tc.name, pe.AppError.Line, tc.line)
		}
		if pe.AppError.Stage != "parse_sub" {
			t.Fatalf("%s: stage=%q", tc.name, pe.AppError.Stage)
		}
	}
}
