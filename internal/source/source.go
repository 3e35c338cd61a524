package source

import (
	"strings"

	"github.com/John-Robertt/clashforge/internal/model"
)

type Format string

const (
	FormatAuto         Format = ""
	FormatJSON         Format = "json"
	FormatYAML         Format = "yaml"
	FormatSubscription Format = "ss"
)

func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, true
	case "json":
		return FormatJSON, true
	case "yaml", "yml":
		return FormatYAML, true
	case "ss", "sub", "subscription":
		return FormatSubscription, true
	default:
		return "", false
	}
}

// DetectFormat guesses the input format from the source name first and the
// content second. Anything that is neither JSON nor obviously YAML is treated
// as a subscription, which also covers base64 bodies.
func DetectFormat(source, content string) Format {
	lower := strings.ToLower(source)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML
	}

	s := strings.TrimSpace(stripUTF8BOM(content))
	switch {
	case strings.HasPrefix(s, "{"), strings.HasPrefix(s, "["):
		return FormatJSON
	case strings.Contains(s, "ss://"):
		return FormatSubscription
	case strings.HasPrefix(s, "outbounds:"), strings.HasPrefix(s, "- "), strings.Contains(s, "\noutbounds:"):
		return FormatYAML
	default:
		return FormatSubscription
	}
}

// Load parses one input into descriptors.
func Load(source, content string, format Format) ([]model.Descriptor, error) {
	if format == FormatAuto {
		format = DetectFormat(source, content)
	}
	switch format {
	case FormatJSON:
		return ParseOutboundsJSON(source, content)
	case FormatYAML:
		return ParseOutboundsYAML(source, content)
	default:
		return ParseSubscription(source, content)
	}
}
