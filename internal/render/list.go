package render

import (
	"strings"

	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/gocarina/gocsv"
)

type ListFormat string

const (
	ListCSV  ListFormat = "csv"
	ListYAML ListFormat = "yaml"
)

func ParseListFormat(s string) (ListFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return ListYAML, true
	case "csv":
		return ListCSV, true
	default:
		return "", false
	}
}

type proxyRow struct {
	Name      string `csv:"name"`
	Type      string `csv:"type"`
	Server    string `csv:"server"`
	Port      int    `csv:"port"`
	Network   string `csv:"network"`
	TLS       bool   `csv:"tls"`
	SNI       string `csv:"sni"`
	Transport string `csv:"transport"`
}

func rowOf(p model.Proxy) proxyRow {
	r := proxyRow{
		Name:    p.Name,
		Type:    p.Type,
		Server:  p.Server,
		Port:    p.Port,
		Network: p.Network,
		TLS:     p.TLS != nil && *p.TLS,
		SNI:     p.ServerName,
	}
	if r.SNI == "" {
		r.SNI = p.SNI
	}
	switch p.Type {
	case "trojan", "hysteria", "hysteria2", "tuic":
		r.TLS = true
	}
	switch {
	case p.WSOpts != nil:
		r.Transport = p.WSOpts.Path
	case p.H2Opts != nil:
		r.Transport = p.H2Opts.Path
	case p.GRPCOpts != nil:
		r.Transport = p.GRPCOpts.ServiceName
	case p.Plugin != "":
		r.Transport = p.Plugin
	}
	return r
}

// ProxyList renders entries as a flat listing. CSV carries one summary row
// per entry; YAML is a complete `proxies:` document.
func ProxyList(proxies []model.Proxy, format ListFormat) (string, error) {
	switch format {
	case ListCSV:
		rows := make([]proxyRow, 0, len(proxies))
		for _, p := range proxies {
			rows = append(rows, rowOf(p))
		}
		out, err := gocsv.MarshalString(&rows)
		if err != nil {
			return "", renderError("RENDER_ERROR", "CSV 编码失败", "", err)
		}
		return out, nil
	case ListYAML, "":
		doc := struct {
			Proxies []model.Proxy `yaml:"proxies"`
		}{Proxies: proxies}
		if doc.Proxies == nil {
			doc.Proxies = []model.Proxy{}
		}
		out, err := encodeYAML(doc, "")
		if err != nil {
			return "", err
		}
		return out + "\n", nil
	default:
		return "", renderError("INVALID_ARGUMENT", "不支持的列表格式："+string(format), "", nil)
	}
}
