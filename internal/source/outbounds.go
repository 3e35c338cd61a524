package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/clashforge/internal/model"
	"gopkg.in/yaml.v3"
)

const stageOutbounds = "parse_outbounds"

// Outbound types that route rather than proxy; they never become entries.
var nonProxyTypes = map[string]struct{}{
	"direct":   {},
	"block":    {},
	"dns":      {},
	"selector": {},
	"urltest":  {},
}

type outboundDoc struct {
	Outbounds []model.Descriptor `json:"outbounds" yaml:"outbounds"`
}

// ParseOutboundsJSON accepts a sing-box config ({"outbounds": [...]}) or a
// bare outbound array. Fields that entries do not use are ignored.
func ParseOutboundsJSON(source, content string) ([]model.Descriptor, error) {
	s := strings.TrimSpace(stripUTF8BOM(content))
	if s == "" {
		return nil, emptyOutbounds(source)
	}

	var list []model.Descriptor
	var err error
	if strings.HasPrefix(s, "[") {
		err = json.Unmarshal([]byte(s), &list)
	} else {
		var doc outboundDoc
		dec := json.NewDecoder(bytes.NewReader([]byte(s)))
		err = dec.Decode(&doc)
		if err == nil && dec.More() {
			err = errors.New("trailing data after JSON document")
		}
		list = doc.Outbounds
	}
	if err != nil {
		return nil, newParseError(stageOutbounds, source, jsonErrorLine(s, err), truncateSnippet(s, 200),
			"OUTBOUNDS_PARSE_ERROR", "outbounds JSON 解析失败", "expected: {\"outbounds\": [...]} or [...]", err)
	}
	return filterOutbounds(source, list)
}

// ParseOutboundsYAML is the YAML twin of ParseOutboundsJSON.
func ParseOutboundsYAML(source, content string) ([]model.Descriptor, error) {
	s := strings.TrimSpace(stripUTF8BOM(content))
	if s == "" {
		return nil, emptyOutbounds(source)
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(s), &root); err != nil {
		return nil, newParseError(stageOutbounds, source, 0, truncateSnippet(s, 200),
			"OUTBOUNDS_PARSE_ERROR", "outbounds YAML 解析失败", "", err)
	}
	if len(root.Content) == 0 {
		return nil, emptyOutbounds(source)
	}

	var list []model.Descriptor
	var err error
	switch doc := root.Content[0]; doc.Kind {
	case yaml.SequenceNode:
		err = doc.Decode(&list)
	case yaml.MappingNode:
		var od outboundDoc
		err = doc.Decode(&od)
		list = od.Outbounds
	default:
		err = fmt.Errorf("unexpected top-level YAML node (line %d)", doc.Line)
	}
	if err != nil {
		return nil, newParseError(stageOutbounds, source, 0, truncateSnippet(s, 200),
			"OUTBOUNDS_PARSE_ERROR", "outbounds YAML 解析失败", "expected: outbounds: [...] or a list", err)
	}
	return filterOutbounds(source, list)
}

func filterOutbounds(source string, list []model.Descriptor) ([]model.Descriptor, error) {
	out := make([]model.Descriptor, 0, len(list))
	for _, d := range list {
		if _, skip := nonProxyTypes[strings.ToLower(strings.TrimSpace(d.Type))]; skip {
			continue
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, emptyOutbounds(source)
	}
	return out, nil
}

func emptyOutbounds(source string) error {
	return newParseError(stageOutbounds, source, 0, "", "OUTBOUNDS_PARSE_ERROR", "输入中没有任何代理 outbound", "", nil)
}

// jsonErrorLine maps a syntax error offset back to a 1-based line.
func jsonErrorLine(s string, err error) int {
	var se *json.SyntaxError
	if !errors.As(err, &se) {
		return 0
	}
	off := int(se.Offset)
	if off > len(s) {
		off = len(s)
	}
	return strings.Count(s[:off], "\n") + 1
}
