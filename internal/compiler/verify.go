package compiler

import (
	"fmt"

	"github.com/John-Robertt/clashforge/internal/model"
)

// Verify checks the structural invariants of a result: unique names across
// proxies and groups, non-empty groups, every member and rule target
// declared, and exactly one MATCH as the last rule.
func Verify(r *Result) error {
	proxies := make(map[string]struct{}, len(r.Proxies))
	for _, p := range r.Proxies {
		if model.IsSentinel(p.Name) {
			return verifyError("DUPLICATE_NAME", "节点名与内置策略冲突："+p.Name, p.Name)
		}
		if _, dup := proxies[p.Name]; dup {
			return verifyError("DUPLICATE_NAME", "节点名重复："+p.Name, p.Name)
		}
		proxies[p.Name] = struct{}{}
	}

	groupNames := make(map[string]struct{}, len(r.Groups))
	for _, g := range r.Groups {
		if model.IsSentinel(g.Name) {
			return verifyError("DUPLICATE_NAME", "策略组名与内置策略冲突："+g.Name, g.Name)
		}
		if _, dup := groupNames[g.Name]; dup {
			return verifyError("DUPLICATE_NAME", "策略组名重复："+g.Name, g.Name)
		}
		if _, clash := proxies[g.Name]; clash {
			return verifyError("DUPLICATE_NAME", "策略组名与节点名冲突："+g.Name, g.Name)
		}
		groupNames[g.Name] = struct{}{}
	}

	resolves := func(name string) bool {
		if model.IsSentinel(name) {
			return true
		}
		if _, ok := groupNames[name]; ok {
			return true
		}
		_, ok := proxies[name]
		return ok
	}

	for _, g := range r.Groups {
		if len(g.Members) == 0 {
			return verifyError("REFERENCE_NOT_FOUND", "策略组为空："+g.Name, g.Name)
		}
		for _, m := range g.Members {
			if m == g.Name {
				return verifyError("REFERENCE_NOT_FOUND", "策略组引用了自身："+g.Name, g.Name)
			}
			if !resolves(m) {
				return verifyError("REFERENCE_NOT_FOUND", fmt.Sprintf("策略组 %s 的成员不存在：%s", g.Name, m), m)
			}
		}
	}

	if len(r.Rules) == 0 {
		return verifyError("MATCH_NOT_LAST", "规则列表为空", "")
	}
	for i, rule := range r.Rules {
		if rule.Matcher == model.MatchAll && i != len(r.Rules)-1 {
			return verifyError("MATCH_NOT_LAST", "兜底规则 MATCH 必须是最后一条", rule.String())
		}
		if _, isGroup := groupNames[rule.Target]; !isGroup && !model.IsSentinel(rule.Target) {
			return verifyError("REFERENCE_NOT_FOUND", "规则目标不存在："+rule.Target, rule.String())
		}
	}
	if last := r.Rules[len(r.Rules)-1]; last.Matcher != model.MatchAll {
		return verifyError("MATCH_NOT_LAST", "缺少兜底规则 MATCH", last.String())
	}
	return nil
}

func verifyError(code, msg, snippet string) error {
	return &CompileError{
		AppError: model.AppError{
			Code:    code,
			Message: msg,
			Stage:   "compile",
			Snippet: snippet,
		},
	}
}
