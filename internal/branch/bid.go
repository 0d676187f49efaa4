package branch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arborvc/arbor/internal/types"
)

// Bid is a branch identifier: "B<n>" at top level, or
// "B<n>.<eid>.<n'>..." nested under an enclosing branch at a hosting eid.
type Bid string

// TopLevel constructs a top-level branch id "B<n>".
func TopLevel(n int) Bid {
	return Bid(fmt.Sprintf("B%d", n))
}

// Nest composes a nested branch id: outer + "." + hostingEid + "." + inner.
func Nest(outer Bid, hostingEid types.Eid, inner int) Bid {
	return Bid(fmt.Sprintf("%s.%d.%d", outer, hostingEid, inner))
}

// Split recovers the outer branch id and the hosting eid from a nested id.
// It returns ok=false for a top-level id (no "." present).
func (b Bid) Split() (outer Bid, hostingEid types.Eid, inner int, ok bool) {
	s := string(b)
	idx := strings.LastIndex(s, ".")
	if idx < 0 {
		return "", 0, 0, false
	}
	innerStr := s[idx+1:]
	rest := s[:idx]
	idx2 := strings.LastIndex(rest, ".")
	if idx2 < 0 {
		return "", 0, 0, false
	}
	eidStr := rest[idx2+1:]
	outerStr := rest[:idx2]

	eidN, err := strconv.ParseInt(eidStr, 10, 64)
	if err != nil {
		return "", 0, 0, false
	}
	innerN, err := strconv.Atoi(innerStr)
	if err != nil {
		return "", 0, 0, false
	}
	return Bid(outerStr), types.Eid(eidN), innerN, true
}

// IsNested reports whether b encodes a hosting relationship.
func (b Bid) IsNested() bool {
	_, _, _, ok := b.Split()
	return ok
}

// TopLevelIndex returns the numeric index n of a top-level bid "B<n>", or
// ok=false for a nested bid or malformed input.
func (b Bid) TopLevelIndex() (n int, ok bool) {
	if b.IsNested() {
		return 0, false
	}
	s := string(b)
	if len(s) < 2 || (s[0] != 'B' && s[0] != 'b') {
		return 0, false
	}
	v, err := strconv.Atoi(s[1:])
	if err != nil {
		return 0, false
	}
	return v, true
}

// NormalizeBid accepts the optional-leading-"B" input syntax
// (`^B<bid>/<relpath>` with the leading B optional) and prepends "B" when
// it is absent; input already starting with "B" or "b" is returned
// unchanged.
func NormalizeBid(s string) Bid {
	if s == "" {
		return ""
	}
	if s[0] != 'B' && s[0] != 'b' {
		return Bid("B" + s)
	}
	return Bid(s)
}
