package rules

import (
	"errors"
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"github.com/John-Robertt/clashforge/internal/model"
)

type RuleError struct {
	Code    string
	Message string
	Hint    string
	Cause   error
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *RuleError) Unwrap() error { return e.Cause }

// ParseMatcherLine parses one classical line of a custom rule:
// TYPE,VALUE[,no-resolve]. The target is not part of the line; it is
// always the custom rule's own.
func ParseMatcherLine(line string) (model.Rule, error) {
	line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
	if line == "" {
		return model.Rule{}, &RuleError{Code: model.CodeInvalidMatcherValue, Message: "规则行不能为空"}
	}
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" {
		return model.Rule{}, &RuleError{Code: model.CodeInvalidMatcherValue, Message: "规则类型不能为空"}
	}

	typ := model.Matcher(strings.ToUpper(parts[0]))
	switch typ {
	case model.MatchDomain, model.MatchDomainSuffix, model.MatchDomainKeyword:
		if len(parts) != 2 {
			return model.Rule{}, &RuleError{
				Code:    model.CodeInvalidMatcherValue,
				Message: "规则字段数量不合法",
				Hint:    "expected: TYPE,VALUE",
			}
		}
		if err := validateDomain(parts[1]); err != nil {
			return model.Rule{}, err
		}
		return model.Rule{Matcher: typ, Value: parts[1]}, nil
	case model.MatchGeoIP:
		if len(parts) < 2 || len(parts) > 3 {
			return model.Rule{}, &RuleError{
				Code:    model.CodeInvalidMatcherValue,
				Message: "GEOIP 规则字段数量不合法",
				Hint:    "expected: GEOIP,CC[,no-resolve]",
			}
		}
		if err := validateGeoIP(parts[1]); err != nil {
			return model.Rule{}, err
		}
		if len(parts) == 3 && !strings.EqualFold(parts[2], "no-resolve") {
			return model.Rule{}, &RuleError{Code: model.CodeInvalidMatcherValue, Message: "GEOIP 的可选项仅支持 no-resolve"}
		}
		return model.Rule{Matcher: typ, Value: strings.ToUpper(parts[1]), NoResolve: true}, nil
	case model.MatchIPCIDR, model.MatchIPCIDR6:
		if len(parts) < 2 || len(parts) > 3 {
			return model.Rule{}, &RuleError{
				Code:    model.CodeInvalidMatcherValue,
				Message: "IP-CIDR 规则字段数量不合法",
				Hint:    "expected: IP-CIDR,CIDR[,no-resolve]",
			}
		}
		if len(parts) == 3 && !strings.EqualFold(parts[2], "no-resolve") {
			return model.Rule{}, &RuleError{
				Code:    model.CodeInvalidMatcherValue,
				Message: "IP-CIDR 的可选项仅支持 no-resolve",
				Hint:    "expected: IP-CIDR,CIDR[,no-resolve]",
			}
		}
		return cidrRule(parts[1])
	case model.MatchAll:
		return model.Rule{}, &RuleError{
			Code:    model.CodeInvalidMatcherValue,
			Message: "自定义规则不允许包含 MATCH",
			Hint:    "the catch-all is appended automatically",
		}
	default:
		return model.Rule{}, &RuleError{
			Code:    "UNSUPPORTED_RULE_TYPE",
			Message: fmt.Sprintf("不支持的规则类型：%s", typ),
		}
	}
}

// cidrRule validates s and picks IP-CIDR or IP-CIDR6 by address family.
// IP rules never trigger DNS resolution.
func cidrRule(s string) (model.Rule, error) {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(s))
	if err != nil {
		return model.Rule{}, &RuleError{
			Code:    model.CodeInvalidMatcherValue,
			Message: "IP-CIDR 的 CIDR 不合法",
			Hint:    "expected: CIDR, e.g. 1.2.3.4/32 or 2001:db8::/32",
			Cause:   err,
		}
	}
	prefix = prefix.Masked()
	typ := model.MatchIPCIDR
	if !prefix.Addr().Is4() {
		typ = model.MatchIPCIDR6
	}
	return model.Rule{Matcher: typ, Value: prefix.String(), NoResolve: true}, nil
}

var (
	domainRe  = regexp.MustCompile(`^[A-Za-z0-9*_.\-\p{L}\p{N}]+$`)
	geoIPRe   = regexp.MustCompile(`^[A-Za-z]{2,}$`)
	ruleSetRe = regexp.MustCompile(`^[A-Za-z0-9_.!@\-]+$`)
)

var errBadValue = errors.New("bad matcher value")

func validateDomain(s string) error {
	if s == "" || !domainRe.MatchString(s) {
		return &RuleError{Code: model.CodeInvalidMatcherValue, Message: "域名不合法：" + truncateSnippet(s, 200), Cause: errBadValue}
	}
	return nil
}

func validateGeoIP(s string) error {
	if !geoIPRe.MatchString(s) {
		return &RuleError{Code: model.CodeInvalidMatcherValue, Message: "GEOIP 代码不合法：" + truncateSnippet(s, 200), Cause: errBadValue}
	}
	return nil
}

func validateRuleSetID(s string) error {
	if !ruleSetRe.MatchString(s) {
		return &RuleError{Code: model.CodeInvalidMatcherValue, Message: "规则集 id 不合法：" + truncateSnippet(s, 200), Cause: errBadValue}
	}
	return nil
}

// splitList splits a comma-separated value list, dropping empty items.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func truncateSnippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max]
}
