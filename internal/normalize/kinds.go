package normalize

import (
	"strings"

	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/google/uuid"
)

const (
	defaultSSCipher    = "aes-256-gcm"
	defaultVMessCipher = "auto"
	defaultCongestion  = "cubic"
	defaultRelayMode   = "native"
)

// sniField selects which Clash key carries the TLS server name for a kind.
type sniField int

const (
	sniServerName sniField = iota // "servername"
	sniSNI                        // "sni"
)

func applyShadowsocks(d *model.Descriptor, p *model.Proxy) error {
	p.Cipher = strings.ToLower(firstNonEmpty(d.Method, defaultSSCipher))
	p.Password = d.Password
	if p.Password == "" && p.Cipher != "none" {
		return newError(d, model.CodeDescriptorInvalid, "shadowsocks 缺少密码", nil)
	}
	p.UDP = !strings.EqualFold(d.Network, "tcp")
	p.TFO = d.TCPFastOpen
	if err := applyPlugin(d, p); err != nil {
		return err
	}
	applyMultiplex(d, p)
	return nil
}

func applyVMess(d *model.Descriptor, p *model.Proxy) error {
	id, err := canonicalUUID(d)
	if err != nil {
		return err
	}
	p.UUID = id
	p.AlterID = intPtr(d.AlterID)
	p.Cipher = firstNonEmpty(d.Security, defaultVMessCipher)
	p.UDP = true
	p.TFO = d.TCPFastOpen
	tlsOn := applyTLS(d, p, sniServerName, nil)
	p.TLS = boolPtr(tlsOn)
	applyTransport(d, p, tlsOn)
	applyMultiplex(d, p)
	return nil
}

func applyVLESS(d *model.Descriptor, p *model.Proxy) error {
	id, err := canonicalUUID(d)
	if err != nil {
		return err
	}
	p.UUID = id
	p.Flow = strings.TrimSpace(d.Flow)
	p.UDP = true
	p.TFO = d.TCPFastOpen
	tlsOn := applyTLS(d, p, sniServerName, nil)
	p.TLS = boolPtr(tlsOn)
	applyReality(d, p)
	applyTransport(d, p, tlsOn)
	applyMultiplex(d, p)
	return nil
}

func applyTrojan(d *model.Descriptor, p *model.Proxy) error {
	if d.Password == "" {
		return newError(d, model.CodeDescriptorInvalid, "trojan 缺少密码", nil)
	}
	p.Password = d.Password
	p.UDP = true
	p.TFO = d.TCPFastOpen
	// Clash trojan is TLS-only; the tls key is never emitted.
	applyTLS(d, p, sniSNI, nil)
	applyReality(d, p)
	applyTransport(d, p, true)
	applyMultiplex(d, p)
	return nil
}

func applyHysteria(d *model.Descriptor, p *model.Proxy) error {
	p.AuthStr = d.AuthStr
	p.Up = d.UpMbps
	p.Down = d.DownMbps
	if d.Obfs != nil {
		p.Obfs = firstNonEmpty(d.Obfs.Password, d.Obfs.Type)
	}
	p.RecvWindowConn = d.RecvWindowConn
	p.RecvWindow = d.RecvWindow
	applyTLS(d, p, sniSNI, boolPtr(true))
	return nil
}

func applyHysteria2(d *model.Descriptor, p *model.Proxy) error {
	if d.Password == "" {
		return newError(d, model.CodeDescriptorInvalid, "hysteria2 缺少密码", nil)
	}
	p.Password = d.Password
	p.Up = d.UpMbps
	p.Down = d.DownMbps
	if d.Obfs != nil && d.Obfs.Type != "" {
		p.Obfs = d.Obfs.Type
		p.ObfsPassword = d.Obfs.Password
	}
	applyTLS(d, p, sniSNI, boolPtr(true))
	return nil
}

func applyTUIC(d *model.Descriptor, p *model.Proxy) error {
	id, err := canonicalUUID(d)
	if err != nil {
		return err
	}
	p.UUID = id
	p.Password = d.Password
	p.CongestionController = firstNonEmpty(d.CongestionControl, defaultCongestion)
	p.UDPRelayMode = firstNonEmpty(d.UDPRelayMode, defaultRelayMode)
	p.DisableSNI = true
	applyTLS(d, p, sniSNI, nil)
	return nil
}

func applySocks(d *model.Descriptor, p *model.Proxy) error {
	p.Username = d.Username
	p.Password = d.Password
	p.UDP = true
	if applyTLS(d, p, sniSNI, nil) {
		p.TLS = boolPtr(true)
	}
	return nil
}

func applyHTTP(d *model.Descriptor, p *model.Proxy) error {
	p.Username = d.Username
	p.Password = d.Password
	if applyTLS(d, p, sniSNI, nil) {
		p.TLS = boolPtr(true)
	}
	return nil
}

func canonicalUUID(d *model.Descriptor) (string, error) {
	raw := strings.TrimSpace(d.UUID)
	if raw == "" {
		return "", newError(d, model.CodeDescriptorInvalid, d.Type+" 缺少 uuid", nil)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", newError(d, model.CodeDescriptorInvalid, "uuid 不合法", err)
	}
	return id.String(), nil
}

// applyTLS copies the TLS block onto p and reports whether TLS is enabled.
// defaultInsecure is used for skip-cert-verify when the descriptor does not
// say; nil leaves the key out.
func applyTLS(d *model.Descriptor, p *model.Proxy, field sniField, defaultInsecure *bool) bool {
	t := d.TLS
	if t == nil {
		p.SkipCertVerify = defaultInsecure
		return false
	}
	if sn := strings.TrimSpace(t.ServerName); sn != "" {
		switch field {
		case sniServerName:
			p.ServerName = sn
		default:
			p.SNI = sn
		}
	}
	switch {
	case t.Insecure != nil:
		p.SkipCertVerify = boolPtr(*t.Insecure)
	default:
		p.SkipCertVerify = defaultInsecure
	}
	if len(t.ALPN) > 0 {
		p.ALPN = append([]string(nil), t.ALPN...)
	}
	if t.UTLS != nil && t.UTLS.Enabled {
		p.ClientFingerprint = firstNonEmpty(t.UTLS.Fingerprint, "chrome")
	}
	return t.Enabled
}

func applyReality(d *model.Descriptor, p *model.Proxy) {
	if d.TLS == nil || d.TLS.Reality == nil || !d.TLS.Reality.Enabled {
		return
	}
	p.RealityOpts = &model.RealityOpts{
		PublicKey: d.TLS.Reality.PublicKey,
		ShortID:   d.TLS.Reality.ShortID,
	}
	if p.ClientFingerprint == "" {
		p.ClientFingerprint = "chrome"
	}
}

// applyTransport sets network and at most one transport sub-object.
// Unknown transport types degrade to plain tcp.
func applyTransport(d *model.Descriptor, p *model.Proxy, tlsOn bool) {
	t := d.Transport
	if t == nil {
		p.Network = "tcp"
		return
	}
	switch strings.ToLower(t.Type) {
	case "ws", "httpupgrade":
		p.Network = "ws"
		opts := &model.WSOpts{
			Path:                t.Path,
			Headers:             wsHeaders(t),
			MaxEarlyData:        t.MaxEarlyData,
			EarlyDataHeaderName: t.EarlyDataHeaderName,
		}
		if strings.EqualFold(t.Type, "httpupgrade") {
			opts.V2rayHTTPUpgrade = true
		}
		p.WSOpts = opts
	case "grpc":
		p.Network = "grpc"
		p.GRPCOpts = &model.GRPCOpts{ServiceName: t.ServiceName}
	case "http":
		if tlsOn {
			p.Network = "h2"
			p.H2Opts = &model.H2Opts{
				Host: append([]string(nil), t.Host...),
				Path: t.Path,
			}
			return
		}
		p.Network = "http"
		opts := &model.HTTPOpts{Method: "GET"}
		if t.Path != "" {
			opts.Path = []string{t.Path}
		}
		if len(t.Host) > 0 {
			opts.Headers = map[string][]string{"Host": append([]string(nil), t.Host...)}
		}
		p.HTTPOpts = opts
	default:
		p.Network = "tcp"
	}
}

func wsHeaders(t *model.TransportOptions) map[string]string {
	if len(t.Headers) == 0 && len(t.Host) == 0 {
		return nil
	}
	h := make(map[string]string, len(t.Headers)+1)
	for k, v := range t.Headers {
		h[k] = v
	}
	if _, ok := h["Host"]; !ok && len(t.Host) > 0 {
		h["Host"] = t.Host[0]
	}
	return h
}

func applyMultiplex(d *model.Descriptor, p *model.Proxy) {
	m := d.Multiplex
	if m == nil || !m.Enabled {
		return
	}
	p.Smux = &model.SmuxOpts{
		Enabled:        true,
		Protocol:       m.Protocol,
		MaxConnections: m.MaxConnections,
		Padding:        m.Padding,
	}
}
