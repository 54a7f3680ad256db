package selector

import (
	"fmt"
	"strings"

	"github.com/newthinker/trendstrength/internal/core"
)

// Policy names a market selection rule
type Policy string

const (
	Up      Policy = "up"
	Down    Policy = "down"
	Neutral Policy = "neutral"
	Strong  Policy = "strong"
	All     Policy = "all"

	// Mixed selects like All
	Mixed Policy = "mixed"
)

// Policies lists the supported policies
var Policies = []Policy{Up, Down, Neutral, Strong, All}

// ParsePolicy accepts the policy names case-insensitively; "mixed" is
// returned as All.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", core.WrapError(core.ErrUnknownPolicy, fmt.Errorf("%q", s))
	}
	return p.Canonical(), nil
}

// Canonical resolves aliases to the policy they select like
func (p Policy) Canonical() Policy {
	if p == Mixed {
		return All
	}
	return p
}

// IsValid reports whether p is a supported policy
func (p Policy) IsValid() bool {
	switch p {
	case Up, Down, Neutral, Strong, All, Mixed:
		return true
	}
	return false
}

func (p Policy) String() string {
	return string(p)
}
