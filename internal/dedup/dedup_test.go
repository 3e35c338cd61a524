package dedup

import (
	"testing"

	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func ss(name, server string, port int, password string) model.Proxy {
	return model.Proxy{Name: name, Type: "ss", Server: server, Port: port, Cipher: "aes-256-gcm", Password: password}
}

func TestRegistry_DuplicateAndRename(t *testing.T) {
	r := NewRegistry(KeyPolicy{}, zerolog.Nop())

	a, skipped := r.Accept(ss("X", "x.example.com", 8388, "pw"))
	if skipped || a.Name != "X" {
		t.Fatalf("a: name=%q skipped=%v", a.Name, skipped)
	}
	b, skipped := r.Accept(ss("other name", "X.EXAMPLE.COM", 8388, "pw"))
	if !skipped {
		t.Fatalf("b: skipped=false, want=true")
	}
	if b.Name != "X" {
		t.Fatalf("b: retained=%q, want=%q", b.Name, "X")
	}
	c, skipped := r.Accept(ss("X", "y.example.com", 8388, "pw"))
	if skipped || c.Name != "X 2" {
		t.Fatalf("c: name=%q skipped=%v, want X 2", c.Name, skipped)
	}

	var names []string
	for _, p := range r.Proxies() {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"X", "X 2"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_SuffixMonotonic(t *testing.T) {
	r := NewRegistry(KeyPolicy{}, zerolog.Nop())
	var got []string
	for i, server := range []string{"a", "b", "c"} {
		p, skipped := r.Accept(ss("name", server, 1000+i, "pw"))
		if skipped {
			t.Fatalf("unexpected skip for %s", server)
		}
		got = append(got, p.Name)
	}
	if diff := cmp.Diff([]string{"name", "name 2", "name 3"}, got); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_SentinelsReserved(t *testing.T) {
	r := NewRegistry(KeyPolicy{}, zerolog.Nop())
	p, _ := r.Accept(ss("DIRECT", "a", 1, "pw"))
	if p.Name != "DIRECT 2" {
		t.Fatalf("name=%q, want=%q", p.Name, "DIRECT 2")
	}
	p, _ = r.Accept(ss("REJECT", "b", 1, "pw"))
	if p.Name != "REJECT 2" {
		t.Fatalf("name=%q, want=%q", p.Name, "REJECT 2")
	}
}

func TestNamer_ScansExistingSuffixes(t *testing.T) {
	n := NewNamer()
	for _, seed := range []string{"A 5", "A"} {
		if got, renamed := n.Claim(seed); renamed || got != seed {
			t.Fatalf("claim %q -> %q renamed=%v", seed, got, renamed)
		}
	}
	got, renamed := n.Claim("A")
	if !renamed || got != "A 6" {
		t.Fatalf("claim A -> %q, want A 6", got)
	}
	// A literal seed that lands on a future candidate is skipped over.
	if got, _ := n.Claim("A 7"); got != "A 7" {
		t.Fatalf("claim A 7 -> %q", got)
	}
	if got, _ := n.Claim("A"); got != "A 8" {
		t.Fatalf("claim A -> %q, want A 8", got)
	}
}

func TestNamer_NeverReusesSuffix(t *testing.T) {
	n := NewNamer()
	n.Claim("B")
	n.Claim("B") // B 2
	n.Claim("B") // B 3
	got, _ := n.Claim("B")
	if got != "B 4" {
		t.Fatalf("got=%q, want=B 4", got)
	}
}

func TestSplitSuffix(t *testing.T) {
	cases := []struct {
		in   string
		base string
		num  int
		ok   bool
	}{
		{"HK 2", "HK", 2, true},
		{"HK 1", "", 0, false},
		{"HK 02", "", 0, false},
		{"HK", "", 0, false},
		{" 3", "", 0, false},
		{"a b 10", "a b", 10, true},
		{"HK ", "", 0, false},
	}
	for _, tc := range cases {
		base, num, ok := splitSuffix(tc.in)
		if base != tc.base || num != tc.num || ok != tc.ok {
			t.Fatalf("splitSuffix(%q)=(%q,%d,%v), want=(%q,%d,%v)", tc.in, base, num, ok, tc.base, tc.num, tc.ok)
		}
	}
}

func TestIdentityKey_TransportPolicy(t *testing.T) {
	a := model.Proxy{Type: "vmess", Server: "v", Port: 443, UUID: "u", Network: "ws", WSOpts: &model.WSOpts{Path: "/a"}}
	b := a
	b.WSOpts = &model.WSOpts{Path: "/b"}

	if IdentityKey(a, KeyPolicy{}) != IdentityKey(b, KeyPolicy{}) {
		t.Fatalf("credential-only keys differ")
	}
	if IdentityKey(a, KeyPolicy{IncludeTransport: true}) == IdentityKey(b, KeyPolicy{IncludeTransport: true}) {
		t.Fatalf("transport keys equal, want distinct")
	}

	r := NewRegistry(KeyPolicy{IncludeTransport: true}, zerolog.Nop())
	a.Name, b.Name = "n", "n"
	if _, skipped := r.Accept(a); skipped {
		t.Fatalf("a skipped")
	}
	if p, skipped := r.Accept(b); skipped || p.Name != "n 2" {
		t.Fatalf("b: name=%q skipped=%v", p.Name, skipped)
	}
}

func TestIdentityKey_IgnoresNameAndDefaults(t *testing.T) {
	a := ss("one", "h", 1, "pw")
	b := ss("two", "H", 1, "pw")
	b.Cipher = "chacha20-ietf-poly1305"
	if IdentityKey(a, KeyPolicy{}) != IdentityKey(b, KeyPolicy{}) {
		t.Fatalf("keys differ on name/cipher/case")
	}
	c := ss("one", "h", 1, "other")
	if IdentityKey(a, KeyPolicy{}) == IdentityKey(c, KeyPolicy{}) {
		t.Fatalf("keys equal on different password")
	}
}
