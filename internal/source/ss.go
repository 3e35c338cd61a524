package source

import (
	"encoding/base64"
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/John-Robertt/clashforge/internal/model"
)

const stageSubscription = "parse_sub"

// ParseSubscription reads a list of ss:// URIs, either raw or base64 encoded
// as a whole. Blank lines and lines starting with # are skipped.
func ParseSubscription(source, content string) ([]model.Descriptor, error) {
	s := strings.TrimSpace(stripUTF8BOM(content))
	if s == "" {
		return nil, newParseError(stageSubscription, source, 0, "", "SUB_PARSE_ERROR", "订阅内容为空", "", nil)
	}

	if !strings.Contains(s, "ss://") {
		decoded, err := decodeSubscriptionBase64(s)
		if err != nil {
			return nil, newParseError(stageSubscription, source, 0, truncateSnippet(s, 200), "SUB_BASE64_DECODE_ERROR", "订阅 base64 解码失败", "", err)
		}
		s = strings.TrimSpace(stripUTF8BOM(decoded))
		if s == "" {
			return nil, newParseError(stageSubscription, source, 0, "", "SUB_PARSE_ERROR", "订阅内容为空", "", nil)
		}
	}

	lines := strings.Split(s, "\n")
	out := make([]model.Descriptor, 0, len(lines))
	for i, line := range lines {
		lp := lineParser{source: source, lineNo: i + 1, raw: line}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "ss://") {
			return nil, lp.fail("SUB_UNSUPPORTED_SCHEME", "仅支持 ss:// 协议", "expected: ss://...", nil)
		}
		d, err := lp.parse(line)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, newParseError(stageSubscription, source, 0, "", "SUB_PARSE_ERROR", "订阅中没有任何可用节点", "", nil)
	}
	return out, nil
}

type lineParser struct {
	source string
	lineNo int
	raw    string
}

func (lp lineParser) fail(code, msg, hint string, cause error) error {
	return newParseError(stageSubscription, lp.source, lp.lineNo, truncateSnippet(lp.raw, 200), code, msg, hint, cause)
}

func (lp lineParser) invalid(msg string, cause error) error {
	return lp.fail("SUB_PARSE_ERROR", msg, "", cause)
}

// parse handles both SIP002 (ss://b64(method:password)@host:port/?plugin=...#tag)
// and the legacy form ss://b64(method:password@host:port)#tag.
func (lp lineParser) parse(s string) (model.Descriptor, error) {
	withoutFrag, frag, hasFrag := strings.Cut(s, "#")
	tag := ""
	if hasFrag {
		decoded, err := url.PathUnescape(frag)
		if err != nil {
			return model.Descriptor{}, lp.invalid("节点名称 URL 解码失败", err)
		}
		tag = strings.TrimSpace(decoded)
		if strings.ContainsAny(tag, "\r\n\x00") {
			return model.Descriptor{}, lp.fail("SUB_PARSE_ERROR", "节点名称包含非法控制字符", "forbidden: \\r \\n \\0", nil)
		}
	}

	withoutQuery, query, _ := strings.Cut(withoutFrag, "?")
	plugin, pluginOpts, err := lp.parsePlugin(query)
	if err != nil {
		return model.Descriptor{}, err
	}

	rest := strings.TrimPrefix(withoutQuery, "ss://")
	if rest == "" {
		return model.Descriptor{}, lp.invalid("ss:// 后缺少内容", nil)
	}

	var userinfo, hostPort string
	if strings.Contains(rest, "@") {
		b64, hp, _ := strings.Cut(rest, "@")
		if b64 == "" || hp == "" {
			return model.Descriptor{}, lp.invalid("ss uri 格式不合法", nil)
		}
		if idx := strings.IndexByte(hp, '/'); idx >= 0 {
			if hp[idx:] != "/" {
				return model.Descriptor{}, lp.invalid("ss uri path 不支持（仅允许空或 /）", nil)
			}
			hp = hp[:idx]
		}
		decoded, err := decodeB64ToString(b64)
		if err != nil {
			return model.Descriptor{}, lp.invalid("ss userinfo base64 解码失败", err)
		}
		userinfo, hostPort = decoded, hp
	} else {
		decoded, err := decodeB64ToString(rest)
		if err != nil {
			return model.Descriptor{}, lp.invalid("ss base64 解码失败", err)
		}
		at := strings.LastIndex(decoded, "@")
		if at < 0 {
			return model.Descriptor{}, lp.invalid("ss base64 解码结果缺少 @ 分隔符", nil)
		}
		userinfo, hostPort = decoded[:at], decoded[at+1:]
	}

	method, password, err := splitMethodPassword(userinfo)
	if err != nil {
		return model.Descriptor{}, lp.invalid("cipher:password 不合法", err)
	}
	server, port, err := parseHostPort(hostPort)
	if err != nil {
		return model.Descriptor{}, lp.invalid("服务器地址或端口不合法", err)
	}

	return model.Descriptor{
		Type:       "shadowsocks",
		Tag:        tag,
		Server:     server,
		ServerPort: port,
		Method:     method,
		Password:   password,
		Plugin:     plugin,
		PluginOpts: pluginOpts,
	}, nil
}

// parsePlugin reads the only supported query parameter, plugin, whose value
// is "name;k=v;k=v". The options are returned re-joined in their original
// order. net/url.ParseQuery is not used because it rejects bare semicolons.
func (lp lineParser) parsePlugin(query string) (string, string, error) {
	if query == "" {
		return "", "", nil
	}

	var value *string
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		kRaw, vRaw, hasEq := strings.Cut(part, "=")
		if !hasEq {
			return "", "", lp.invalid("query 参数必须是 key=value 形式", nil)
		}
		k, err := url.PathUnescape(kRaw)
		if err != nil {
			return "", "", lp.invalid("query 参数解码失败", err)
		}
		v, err := url.PathUnescape(vRaw)
		if err != nil {
			return "", "", lp.invalid("query 参数解码失败", err)
		}
		if k != "plugin" {
			return "", "", lp.fail("SUB_PARSE_ERROR", "出现未知 query 参数（仅支持 plugin）", "only allow: plugin", nil)
		}
		if value != nil {
			return "", "", lp.invalid("重复的 plugin 参数", nil)
		}
		value = &v
	}
	if value == nil {
		return "", "", nil
	}

	segs := strings.Split(*value, ";")
	name := strings.TrimSpace(segs[0])
	if name == "" {
		return "", "", lp.invalid("plugin 名称不能为空", nil)
	}
	opts := make([]string, 0, len(segs)-1)
	for _, seg := range segs[1:] {
		if seg == "" {
			continue
		}
		k, v, ok := strings.Cut(seg, "=")
		k = strings.TrimSpace(k)
		if k == "" {
			return "", "", lp.invalid("plugin 选项 key 不能为空", nil)
		}
		// Bare flags such as "tls" are valid for v2ray-plugin.
		if !ok {
			opts = append(opts, k)
			continue
		}
		opts = append(opts, k+"="+v)
	}
	return name, strings.Join(opts, ";"), nil
}

func splitMethodPassword(s string) (string, string, error) {
	if !utf8.ValidString(s) {
		return "", "", errors.New("not valid utf-8")
	}
	method, password, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", errors.New("missing ':'")
	}
	method = strings.TrimSpace(method)
	password = strings.TrimSpace(password)
	if method == "" || password == "" {
		return "", "", errors.New("empty method or password")
	}
	if strings.ContainsAny(method, "\r\n\x00") || strings.ContainsAny(password, "\r\n\x00") {
		return "", "", errors.New("control chars in method/password")
	}
	return method, password, nil
}

func parseHostPort(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, err
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "", 0, errors.New("empty host")
	}
	port, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil {
		return "", 0, err
	}
	if port < 1 || port > 65535 {
		return "", 0, errors.New("port out of range")
	}
	return host, port, nil
}

func decodeSubscriptionBase64(s string) (string, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
	b, err := decodeB64(s)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("decoded subscription is not valid utf-8")
	}
	return string(b), nil
}

func decodeB64ToString(s string) (string, error) {
	b, err := decodeB64(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeB64 tries padded and unpadded, standard and URL-safe alphabets.
func decodeB64(s string) ([]byte, error) {
	var lastErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
