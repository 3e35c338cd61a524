// Package dedup decides which normalized proxies are the same upstream
// endpoint and hands out collision-free display names.
package dedup

import (
	"sort"
	"strconv"
	"strings"

	"github.com/John-Robertt/clashforge/internal/model"
)

// KeyPolicy selects the fields that make two entries "the same endpoint".
type KeyPolicy struct {
	// IncludeTransport also keys on transport options (network, paths, host
	// headers, service name, SNI, plugin). Off means credentials only.
	IncludeTransport bool
}

const sep = "\x1f"

// IdentityKey projects p onto kind, address, port and auth fields.
func IdentityKey(p model.Proxy, policy KeyPolicy) string {
	var b strings.Builder
	write := func(s string) {
		b.WriteString(s)
		b.WriteString(sep)
	}

	write(strings.ToLower(p.Type))
	write(strings.ToLower(strings.TrimSpace(p.Server)))
	write(strconv.Itoa(p.Port))
	write(p.UUID)
	write(p.Password)
	write(p.AuthStr)
	write(p.Username)

	if !policy.IncludeTransport {
		return b.String()
	}

	write(p.Network)
	write(firstNonEmpty(p.ServerName, p.SNI))
	if p.WSOpts != nil {
		write(p.WSOpts.Path)
		write(p.WSOpts.Headers["Host"])
	}
	if p.H2Opts != nil {
		write(p.H2Opts.Path)
		hosts := append([]string(nil), p.H2Opts.Host...)
		sort.Strings(hosts)
		write(strings.Join(hosts, ","))
	}
	if p.HTTPOpts != nil {
		write(strings.Join(p.HTTPOpts.Path, ","))
	}
	if p.GRPCOpts != nil {
		write(p.GRPCOpts.ServiceName)
	}
	if p.PluginOpts != nil {
		write(p.Plugin)
		write(p.PluginOpts.Host)
		write(p.PluginOpts.Path)
	}
	return b.String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
