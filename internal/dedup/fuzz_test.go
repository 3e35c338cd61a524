package dedup

import (
	"strings"
	"testing"
)

func FuzzNamer(f *testing.F) {
	f.Add("a\nb\na\na 2\na")
	f.Add("DIRECT\nDIRECT\nx 3\nx\nx")
	f.Fuzz(func(t *testing.T, seeds string) {
		n := NewNamer("DIRECT", "REJECT")
		seen := map[string]struct{}{"DIRECT": {}, "REJECT": {}}
		for _, s := range strings.Split(seeds, "\n") {
			got, _ := n.Claim(s)
			if _, dup := seen[got]; dup {
				t.Fatalf("name %q handed out twice", got)
			}
			seen[got] = struct{}{}
		}
	})
}
