package model

type Matcher string

const (
	MatchDomain        Matcher = "DOMAIN"
	MatchDomainSuffix  Matcher = "DOMAIN-SUFFIX"
	MatchDomainKeyword Matcher = "DOMAIN-KEYWORD"
	MatchRuleSet       Matcher = "RULE-SET"
	MatchIPCIDR        Matcher = "IP-CIDR"
	MatchIPCIDR6       Matcher = "IP-CIDR6"
	MatchGeoIP         Matcher = "GEOIP"
	MatchAll           Matcher = "MATCH"
)

type Rule struct {
	Matcher   Matcher
	Value     string // domain/suffix/keyword/cidr/cc/rule-set id; empty for MATCH
	Target    string // DIRECT/REJECT/group name
	NoResolve bool   // only meaningful for IP-flavoured matchers
}

// Rule-set ids are opaque to the engine; the prefix tells a serializer
// whether the set holds domains or addresses.
const (
	SiteRuleSetPrefix = "geosite-"
	IPRuleSetPrefix   = "geoip-"
)

func (r Rule) String() string {
	if r.Matcher == MatchAll {
		return string(MatchAll) + "," + r.Target
	}
	s := string(r.Matcher) + "," + r.Value + "," + r.Target
	if r.NoResolve {
		s += ",no-resolve"
	}
	return s
}
