package model

// Sentinel targets. They are valid group members and rule targets without
// being declared anywhere.
const (
	Direct = "DIRECT"
	Reject = "REJECT"
)

func IsSentinel(name string) bool {
	return name == Direct || name == Reject
}

type Role string

const (
	RoleManualSelect   Role = "manual-select"
	RoleLatencyProbe   Role = "latency-probe"
	RoleRegionProbe    Role = "region-probe"
	RoleCategorySelect Role = "category-select"
	RoleFallback       Role = "fallback"
)

type Group struct {
	Name string
	Role Role
	Type string // "select" | "url-test" | "fallback"

	Members []string // proxy names / group names / DIRECT / REJECT

	// url-test / fallback only
	TestURL     string
	IntervalSec int
	Lazy        bool

	ToleranceMS  int
	HasTolerance bool
}

// Probing reports whether the group actively tests its members.
func (g Group) Probing() bool {
	return g.Type == "url-test" || g.Type == "fallback"
}
