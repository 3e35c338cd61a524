package model

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Descriptor is one upstream proxy endpoint as handed over by a loader.
// Field names follow the sing-box outbound schema so exported outbound lists
// can be fed in without translation. It is read-only once loaded.
type Descriptor struct {
	Type       string `json:"type" yaml:"type"`
	Tag        string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Server     string `json:"server" yaml:"server"`
	ServerPort int    `json:"server_port" yaml:"server_port"`

	// shadowsocks
	Method     string `json:"method,omitempty" yaml:"method,omitempty"`
	Plugin     string `json:"plugin,omitempty" yaml:"plugin,omitempty"`
	PluginOpts string `json:"plugin_opts,omitempty" yaml:"plugin_opts,omitempty"`

	// credentials
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	UUID     string `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	AuthStr  string `json:"auth_str,omitempty" yaml:"auth_str,omitempty"`

	// vmess / vless
	AlterID  int    `json:"alter_id,omitempty" yaml:"alter_id,omitempty"`
	Security string `json:"security,omitempty" yaml:"security,omitempty"`
	Flow     string `json:"flow,omitempty" yaml:"flow,omitempty"`

	// "tcp" or "udp" restricts the outbound to one network; empty means both.
	Network     string `json:"network,omitempty" yaml:"network,omitempty"`
	TCPFastOpen bool   `json:"tcp_fast_open,omitempty" yaml:"tcp_fast_open,omitempty"`

	// hysteria / hysteria2 / tuic
	UpMbps            int          `json:"up_mbps,omitempty" yaml:"up_mbps,omitempty"`
	DownMbps          int          `json:"down_mbps,omitempty" yaml:"down_mbps,omitempty"`
	Obfs              *ObfsOptions `json:"obfs,omitempty" yaml:"obfs,omitempty"`
	RecvWindowConn    int          `json:"recv_window_conn,omitempty" yaml:"recv_window_conn,omitempty"`
	RecvWindow        int          `json:"recv_window,omitempty" yaml:"recv_window,omitempty"`
	CongestionControl string       `json:"congestion_control,omitempty" yaml:"congestion_control,omitempty"`
	UDPRelayMode      string       `json:"udp_relay_mode,omitempty" yaml:"udp_relay_mode,omitempty"`

	TLS       *TLSOptions       `json:"tls,omitempty" yaml:"tls,omitempty"`
	Transport *TransportOptions `json:"transport,omitempty" yaml:"transport,omitempty"`
	Multiplex *MultiplexOptions `json:"multiplex,omitempty" yaml:"multiplex,omitempty"`
}

type TLSOptions struct {
	Enabled    bool            `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	ServerName string          `json:"server_name,omitempty" yaml:"server_name,omitempty"`
	Insecure   *bool           `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	DisableSNI bool            `json:"disable_sni,omitempty" yaml:"disable_sni,omitempty"`
	ALPN       []string        `json:"alpn,omitempty" yaml:"alpn,omitempty"`
	UTLS       *UTLSOptions    `json:"utls,omitempty" yaml:"utls,omitempty"`
	Reality    *RealityOptions `json:"reality,omitempty" yaml:"reality,omitempty"`
}

type UTLSOptions struct {
	Enabled     bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
}

type RealityOptions struct {
	Enabled   bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	PublicKey string `json:"public_key,omitempty" yaml:"public_key,omitempty"`
	ShortID   string `json:"short_id,omitempty" yaml:"short_id,omitempty"`
}

type TransportOptions struct {
	Type                string            `json:"type,omitempty" yaml:"type,omitempty"`
	Path                string            `json:"path,omitempty" yaml:"path,omitempty"`
	Host                []string          `json:"host,omitempty" yaml:"host,omitempty"`
	Headers             map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	ServiceName         string            `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	MaxEarlyData        int               `json:"max_early_data,omitempty" yaml:"max_early_data,omitempty"`
	EarlyDataHeaderName string            `json:"early_data_header_name,omitempty" yaml:"early_data_header_name,omitempty"`
}

type MultiplexOptions struct {
	Enabled        bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Protocol       string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	MaxConnections int    `json:"max_connections,omitempty" yaml:"max_connections,omitempty"`
	Padding        bool   `json:"padding,omitempty" yaml:"padding,omitempty"`
}

// ObfsOptions covers both obfs shapes seen in outbound lists:
// hysteria2 uses {type, password}, hysteria (v1) uses a bare string which is
// the obfuscation password.
type ObfsOptions struct {
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

func (o *ObfsOptions) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		o.Password = s
		return nil
	}
	type plain ObfsOptions
	return json.Unmarshal(b, (*plain)(o))
}

func (o *ObfsOptions) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		o.Password = n.Value
		return nil
	}
	type plain ObfsOptions
	return n.Decode((*plain)(o))
}
