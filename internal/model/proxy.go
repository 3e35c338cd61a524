package model

// Proxy is the normalized entry handed to group building and serialization.
// Field names and yaml keys follow the Clash (mihomo) proxy schema. Which
// fields are set depends on Type; everything optional is omitted when empty,
// and transport sub-objects are pointers so an unused block is absent rather
// than null.
type Proxy struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Server string `yaml:"server"`
	Port   int    `yaml:"port"`

	Cipher   string `yaml:"cipher,omitempty"`
	Password string `yaml:"password,omitempty"`
	UUID     string `yaml:"uuid,omitempty"`
	AlterID  *int   `yaml:"alterId,omitempty"`
	Username string `yaml:"username,omitempty"`
	AuthStr  string `yaml:"auth-str,omitempty"`
	Flow     string `yaml:"flow,omitempty"`

	UDP bool `yaml:"udp,omitempty"`
	TFO bool `yaml:"tfo,omitempty"`

	TLS               *bool    `yaml:"tls,omitempty"`
	ServerName        string   `yaml:"servername,omitempty"`
	SNI               string   `yaml:"sni,omitempty"`
	SkipCertVerify    *bool    `yaml:"skip-cert-verify,omitempty"`
	ALPN              []string `yaml:"alpn,omitempty"`
	ClientFingerprint string   `yaml:"client-fingerprint,omitempty"`
	DisableSNI        bool     `yaml:"disable-sni,omitempty"`

	Network     string       `yaml:"network,omitempty"`
	WSOpts      *WSOpts      `yaml:"ws-opts,omitempty"`
	HTTPOpts    *HTTPOpts    `yaml:"http-opts,omitempty"`
	H2Opts      *H2Opts      `yaml:"h2-opts,omitempty"`
	GRPCOpts    *GRPCOpts    `yaml:"grpc-opts,omitempty"`
	RealityOpts *RealityOpts `yaml:"reality-opts,omitempty"`
	Smux        *SmuxOpts    `yaml:"smux,omitempty"`

	Plugin     string      `yaml:"plugin,omitempty"`
	PluginOpts *PluginOpts `yaml:"plugin-opts,omitempty"`

	// hysteria / hysteria2
	Up             int    `yaml:"up,omitempty"`
	Down           int    `yaml:"down,omitempty"`
	Obfs           string `yaml:"obfs,omitempty"`
	ObfsPassword   string `yaml:"obfs-password,omitempty"`
	RecvWindowConn int    `yaml:"recv-window-conn,omitempty"`
	RecvWindow     int    `yaml:"recv-window,omitempty"`

	// tuic
	CongestionController string `yaml:"congestion-controller,omitempty"`
	UDPRelayMode         string `yaml:"udp-relay-mode,omitempty"`
}

type WSOpts struct {
	Path                string            `yaml:"path,omitempty"`
	Headers             map[string]string `yaml:"headers,omitempty"`
	MaxEarlyData        int               `yaml:"max-early-data,omitempty"`
	EarlyDataHeaderName string            `yaml:"early-data-header-name,omitempty"`
	V2rayHTTPUpgrade    bool              `yaml:"v2ray-http-upgrade,omitempty"`
}

type HTTPOpts struct {
	Method  string              `yaml:"method,omitempty"`
	Path    []string            `yaml:"path,omitempty"`
	Headers map[string][]string `yaml:"headers,omitempty"`
}

type H2Opts struct {
	Host []string `yaml:"host,omitempty"`
	Path string   `yaml:"path,omitempty"`
}

type GRPCOpts struct {
	ServiceName string `yaml:"grpc-service-name,omitempty"`
}

type RealityOpts struct {
	PublicKey string `yaml:"public-key"`
	ShortID   string `yaml:"short-id,omitempty"`
}

type SmuxOpts struct {
	Enabled        bool   `yaml:"enabled"`
	Protocol       string `yaml:"protocol,omitempty"`
	MaxConnections int    `yaml:"max-connections,omitempty"`
	Padding        bool   `yaml:"padding,omitempty"`
}

type PluginOpts struct {
	Mode string `yaml:"mode,omitempty"`
	Host string `yaml:"host,omitempty"`
	Path string `yaml:"path,omitempty"`
	TLS  bool   `yaml:"tls,omitempty"`
	Mux  bool   `yaml:"mux,omitempty"`
}
