package dedup

import (
	"strconv"
	"strings"
)

// Namer hands out unique names within one namespace. A colliding seed gets a
// " N" suffix where N is one more than the highest suffix ever seen for that
// seed (2 at minimum). Suffixes only grow, so a freed one is never reused.
type Namer struct {
	taken map[string]struct{}
	max   map[string]int
}

func NewNamer(reserved ...string) *Namer {
	n := &Namer{
		taken: make(map[string]struct{}),
		max:   make(map[string]int),
	}
	for _, r := range reserved {
		n.claim(r)
	}
	return n
}

func (n *Namer) Taken(name string) bool {
	_, ok := n.taken[name]
	return ok
}

// Claim registers name and returns it, or a suffixed variant when it is
// already taken. renamed reports the latter.
func (n *Namer) Claim(seed string) (name string, renamed bool) {
	if !n.Taken(seed) {
		n.claim(seed)
		return seed, false
	}
	i := n.max[seed] + 1
	if i < 2 {
		i = 2
	}
	for {
		cand := seed + " " + strconv.Itoa(i)
		if !n.Taken(cand) {
			n.max[seed] = i
			n.claim(cand)
			return cand, true
		}
		i++
	}
}

func (n *Namer) claim(name string) {
	n.taken[name] = struct{}{}
	if base, num, ok := splitSuffix(name); ok && num > n.max[base] {
		n.max[base] = num
	}
}

// splitSuffix splits "seed N" into its parts when N >= 2.
func splitSuffix(name string) (string, int, bool) {
	i := strings.LastIndexByte(name, ' ')
	if i <= 0 || i == len(name)-1 {
		return "", 0, false
	}
	digits := name[i+1:]
	if digits[0] == '0' {
		return "", 0, false
	}
	num, err := strconv.Atoi(digits)
	if err != nil || num < 2 {
		return "", 0, false
	}
	return name[:i], num, true
}
