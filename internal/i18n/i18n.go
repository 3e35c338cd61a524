// Package i18n resolves display labels for group names.
//
// Lookups never fail the caller: Label falls back to the raw key text so
// a missing translation still yields a well-formed document.
package i18n

import (
	"errors"
	"strings"

	"golang.org/x/text/language"
)

var ErrMissing = errors.New("i18n: missing key")

// Localizer maps a dotted key such as "outboundNames.Fall Back" to a label.
type Localizer interface {
	Localize(key string) (string, error)
}

// LocalizerFunc adapts a plain function to Localizer.
type LocalizerFunc func(key string) (string, error)

func (f LocalizerFunc) Localize(key string) (string, error) { return f(key) }

const (
	KeyNodeSelect = "outboundNames.Node Select"
	KeyAutoSelect = "outboundNames.Auto Select"
	KeyFallBack   = "outboundNames.Fall Back"
)

// OutboundKey is the key of the group label for a rule category.
func OutboundKey(category string) string { return "outboundNames." + category }

// RegionKey is the key of the label of a region probe group.
func RegionKey(region string) string { return "regions." + region }

// Label looks key up through l. ok is false when l was nil, failed or
// returned an empty label; the returned label is then the key without its
// namespace prefix.
func Label(l Localizer, key string) (label string, ok bool) {
	if l != nil {
		if s, err := l.Localize(key); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s, true
			}
		}
	}
	return RawKey(key), false
}

func RawKey(key string) string {
	if _, rest, found := strings.Cut(key, "."); found && rest != "" {
		return rest
	}
	return key
}

// Table is a static, in-memory Localizer.
type Table struct {
	entries map[string]string
}

func (t *Table) Localize(key string) (string, error) {
	if t == nil {
		return "", ErrMissing
	}
	s, ok := t.entries[key]
	if !ok {
		return "", ErrMissing
	}
	return s, nil
}

var (
	zhCN = language.MustParse("zh-CN")
	enUS = language.MustParse("en-US")

	supported = []language.Tag{zhCN, enUS}
)

var matcher = language.NewMatcher(supported)

// Languages lists the built-in tables, default first.
func Languages() []string {
	out := make([]string, 0, len(supported))
	for _, t := range supported {
		out = append(out, t.String())
	}
	return out
}

// New returns the built-in table closest to lang (a BCP 47 tag or an
// Accept-Language value). Unknown or empty input selects zh-CN.
func New(lang string) *Table {
	idx := 0
	if strings.TrimSpace(lang) != "" {
		tags, _, err := language.ParseAcceptLanguage(lang)
		if err == nil && len(tags) > 0 {
			_, idx, _ = matcher.Match(tags...)
		}
	}
	return &Table{entries: builtin[supported[idx]]}
}
