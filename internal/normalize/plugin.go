package normalize

import (
	"strings"

	"github.com/John-Robertt/clashforge/internal/model"
)

// applyPlugin maps a SIP003 plugin and its "k=v;k=v" option string onto the
// Clash plugin keys. Only the two plugins Clash understands are accepted.
func applyPlugin(d *model.Descriptor, p *model.Proxy) error {
	name := strings.TrimSpace(d.Plugin)
	if name == "" {
		return nil
	}
	opts := parsePluginOpts(d.PluginOpts)

	switch name {
	case "obfs-local", "simple-obfs", "obfs":
		mode := opts.get("obfs", "mode")
		if mode == "" {
			mode = "http"
		}
		p.Plugin = "obfs"
		p.PluginOpts = &model.PluginOpts{
			Mode: mode,
			Host: opts.get("obfs-host", "host"),
		}
	case "v2ray-plugin":
		mode := opts.get("mode")
		if mode == "" {
			mode = "websocket"
		}
		p.Plugin = "v2ray-plugin"
		p.PluginOpts = &model.PluginOpts{
			Mode: mode,
			Host: opts.get("host"),
			Path: opts.get("path"),
			TLS:  opts.has("tls"),
			Mux:  opts.has("mux"),
		}
	default:
		return newError(d, model.CodeDescriptorInvalid, "不支持的 shadowsocks 插件："+name, nil)
	}
	return nil
}

type pluginOpts map[string]string

func parsePluginOpts(s string) pluginOpts {
	out := make(pluginOpts)
	for _, seg := range strings.Split(s, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		k, v, _ := strings.Cut(seg, "=")
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

func (o pluginOpts) get(keys ...string) string {
	for _, k := range keys {
		if v, ok := o[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// has treats a bare flag ("tls") and an explicit true as set.
func (o pluginOpts) has(key string) bool {
	v, ok := o[key]
	if !ok {
		return false
	}
	return v == "" || strings.EqualFold(v, "true") || v == "1"
}
