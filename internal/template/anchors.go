// Package template injects rendered Clash blocks into a base document.
// A base document marks each block's position with a standalone anchor line
// nested under the key that owns the block.
package template

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/John-Robertt/clashforge/internal/render"
	"gopkg.in/yaml.v3"
)

const (
	AnchorProxies   = "#@PROXIES@#"
	AnchorGroups    = "#@GROUPS@#"
	AnchorProviders = "#@PROVIDERS@#"
	AnchorRules     = "#@RULES@#"
)

//go:embed default.yaml
var defaultTemplate string

// Default returns the built-in base document.
func Default() string { return defaultTemplate }

type Options struct {
	// TemplateURL labels errors with where the template came from.
	TemplateURL string
}

type anchor struct {
	mark     string
	block    func(render.Blocks) string
	optional func(render.Blocks) bool
}

var anchors = []anchor{
	{mark: AnchorProxies, block: func(b render.Blocks) string { return b.Proxies }},
	{mark: AnchorGroups, block: func(b render.Blocks) string { return b.Groups }},
	// A template without rule-set rules has nowhere to put providers.
	{
		mark:     AnchorProviders,
		block:    func(b render.Blocks) string { return b.Providers },
		optional: func(b render.Blocks) bool { return b.Providers == "" || b.Providers == "{}" },
	},
	{mark: AnchorRules, block: func(b render.Blocks) string { return b.Rules }},
}

// Inject validates the anchors and replaces each with its block, indented like
// the anchor line. Newline style (CRLF/LF) and the trailing newline are kept.
// The result must parse as YAML.
func Inject(templateText string, blocks render.Blocks, opt Options) (string, error) {
	if templateText == "" {
		return "", templateError("INVALID_ARGUMENT", "template 不能为空", opt.TemplateURL, 0, "", "", nil)
	}

	newline := detectNewline(templateText)
	normalized := strings.ReplaceAll(templateText, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")
	endsWithNewline := strings.HasSuffix(normalized, "\n")

	pos, err := findAnchors(lines, blocks, opt.TemplateURL)
	if err != nil {
		return "", err
	}
	for i, a := range anchors {
		if pos[i] >= 0 {
			lines[pos[i]] = indentBlock(lines[pos[i]], a.block(blocks))
		}
	}

	out := strings.Join(lines, "\n")
	if !endsWithNewline {
		out = strings.TrimSuffix(out, "\n")
	}

	var probe map[string]any
	if err := yaml.Unmarshal([]byte(out), &probe); err != nil {
		return "", templateError("TEMPLATE_RESULT_INVALID", "注入后的配置不是合法 YAML", opt.TemplateURL, 0, "", "", err)
	}

	if newline == "\r\n" {
		out = strings.ReplaceAll(out, "\n", "\r\n")
	}
	return out, nil
}

// findAnchors returns the line index of each anchor (-1 if absent and optional).
func findAnchors(lines []string, blocks render.Blocks, templateURL string) ([]int, error) {
	pos := make([]int, len(anchors))
	for i := range pos {
		pos[i] = -1
	}

	for lineNo, line := range lines {
		trim := strings.TrimSpace(line)
		for i, a := range anchors {
			if !strings.Contains(line, a.mark) {
				continue
			}
			if trim != a.mark {
				return nil, templateError("TEMPLATE_SECTION_ERROR", "锚点必须独占一行", templateURL, lineNo+1, line, a.mark, nil)
			}
			if pos[i] >= 0 {
				return nil, templateError("TEMPLATE_ANCHOR_DUP", fmt.Sprintf("锚点 %s 重复出现", a.mark), templateURL, lineNo+1, "", "", nil)
			}
			// Anchor indent must not be 0: blocks are list or map bodies.
			if leadingWhitespace(line) == "" {
				return nil, templateError("TEMPLATE_SECTION_ERROR", "Clash 模板锚点缩进不能为 0（应位于对应键下方）", templateURL, lineNo+1, line, a.mark, nil)
			}
			pos[i] = lineNo
		}
	}

	for i, a := range anchors {
		if pos[i] >= 0 {
			continue
		}
		if a.optional != nil && a.optional(blocks) {
			continue
		}
		return nil, templateError("TEMPLATE_ANCHOR_MISSING", fmt.Sprintf("缺少锚点 %s", a.mark), templateURL, 0, "", "", nil)
	}
	return pos, nil
}

func templateError(code, msg, templateURL string, line int, snippet, hint string, cause error) error {
	return &TemplateError{
		AppError: model.AppError{
			Code:    code,
			Message: msg,
			Stage:   "validate_template",
			URL:     templateURL,
			Line:    line,
			Snippet: snippet,
			Hint:    hint,
		},
		Cause: cause,
	}
}

func indentBlock(anchorLine string, block string) string {
	if block == "" {
		return ""
	}
	indent := leadingWhitespace(anchorLine)
	blockLines := strings.Split(block, "\n")
	for i := range blockLines {
		blockLines[i] = indent + blockLines[i]
	}
	return strings.Join(blockLines, "\n")
}

func leadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

func detectNewline(s string) string {
	if strings.Contains(s, "\r\n") {
		return "\r\n"
	}
	return "\n"
}
