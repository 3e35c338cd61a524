// Package normalize maps sing-box style outbound descriptors onto Clash
// proxy entries.
package normalize

import (
	"net"
	"strconv"
	"strings"
	"unicode"

	"github.com/John-Robertt/clashforge/internal/model"
	"golang.org/x/text/unicode/norm"
)

// Policy decides what happens to descriptors of an unknown kind. Passthrough
// keeps the type verbatim and copies the common fields plus the TLS and
// transport blocks; kind-specific fields are not carried.
type Policy string

const (
	PolicyStrict      Policy = "strict"
	PolicyPassthrough Policy = "passthrough"
)

func ParsePolicy(s string) (Policy, bool) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyStrict:
		return PolicyStrict, true
	case PolicyPassthrough:
		return PolicyPassthrough, true
	default:
		return "", false
	}
}

type Options struct {
	UnknownKinds Policy
}

func (o Options) withDefaults() Options {
	if o.UnknownKinds == "" {
		o.UnknownKinds = PolicyStrict
	}
	return o
}

type kindSpec struct {
	entryType string
	apply     func(d *model.Descriptor, p *model.Proxy) error
}

var kinds = map[string]kindSpec{
	"shadowsocks": {"ss", applyShadowsocks},
	"vmess":       {"vmess", applyVMess},
	"vless":       {"vless", applyVLESS},
	"trojan":      {"trojan", applyTrojan},
	"hysteria":    {"hysteria", applyHysteria},
	"hysteria2":   {"hysteria2", applyHysteria2},
	"tuic":        {"tuic", applyTUIC},
	"socks":       {"socks5", applySocks},
	"http":        {"http", applyHTTP},
}

// Kinds lists the supported descriptor kinds.
func Kinds() []string {
	return []string{"shadowsocks", "vmess", "vless", "trojan", "hysteria", "hysteria2", "tuic", "socks", "http"}
}

// EntryType returns the Clash proxy type for a descriptor kind.
func EntryType(kind string) (string, bool) {
	k, ok := kinds[strings.ToLower(kind)]
	return k.entryType, ok
}

// Normalize maps one descriptor to an entry. The descriptor is not modified.
// The entry's Name is only the seed; uniqueness is the caller's concern.
func Normalize(d model.Descriptor, opt Options) (model.Proxy, error) {
	opt = opt.withDefaults()

	kind := strings.ToLower(strings.TrimSpace(d.Type))
	server := normalizeServer(d.Server)
	if server == "" {
		return model.Proxy{}, newError(&d, model.CodeDescriptorInvalid, "缺少服务器地址", nil)
	}
	if d.ServerPort <= 0 || d.ServerPort > 65535 {
		return model.Proxy{}, newError(&d, model.CodeDescriptorInvalid, "端口不合法："+strconv.Itoa(d.ServerPort), nil)
	}

	spec, ok := kinds[kind]
	if !ok {
		if opt.UnknownKinds != PolicyPassthrough {
			return model.Proxy{}, newError(&d, model.CodeUnsupportedKind, "不支持的协议类型："+d.Type, nil)
		}
		p := model.Proxy{
			Type:     strings.TrimSpace(d.Type),
			Server:   server,
			Port:     d.ServerPort,
			Password: d.Password,
			UUID:     strings.TrimSpace(d.UUID),
			Username: d.Username,
			Cipher:   strings.TrimSpace(d.Method),
		}
		applyTLS(&d, &p, sniSNI, nil)
		applyReality(&d, &p)
		if d.Transport != nil {
			applyTransport(&d, &p, d.TLS != nil && d.TLS.Enabled)
		}
		p.Name = SeedName(d.Tag, p.Type, server, d.ServerPort)
		return p, nil
	}

	p := model.Proxy{
		Type:   spec.entryType,
		Server: server,
		Port:   d.ServerPort,
	}
	if err := spec.apply(&d, &p); err != nil {
		return model.Proxy{}, err
	}
	p.Name = SeedName(d.Tag, p.Type, server, d.ServerPort)
	return p, nil
}

// SeedName derives the display-name seed: the tag, NFC-normalized and free
// of control characters, or "<type> <host>:<port>" when that leaves nothing.
func SeedName(tag, entryType, server string, port int) string {
	name := norm.NFC.String(tag)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name != "" {
		return name
	}
	return entryType + " " + net.JoinHostPort(server, strconv.Itoa(port))
}

func normalizeServer(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}
	return s
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
