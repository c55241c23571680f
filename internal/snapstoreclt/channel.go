package snapstoreclt

import (
	"fmt"
)

// Risk levels of store channels, ordered from most to least stable.
const (
	RiskStable    = "stable"
	RiskCandidate = "candidate"
	RiskBeta      = "beta"
	RiskEdge      = "edge"
)

var Risks = []string{RiskStable, RiskCandidate, RiskBeta, RiskEdge}

// Channel identifies a release stream of a snap in the store.
// Track is the fully composed track name, e.g. "1.32-classic", Risk one of
// the Risks values.
type Channel struct {
	Track string
	Risk  string
}

// NewChannel validates track and risk and returns the channel.
func NewChannel(track, risk string) (Channel, error) {
	if track == "" {
		return Channel{}, fmt.Errorf("channel track is empty")
	}

	for _, r := range Risks {
		if risk == r {
			return Channel{Track: track, Risk: risk}, nil
		}
	}

	return Channel{}, fmt.Errorf("channel risk %q is not one of %v", risk, Risks)
}

func (c Channel) String() string {
	return c.Track + "/" + c.Risk
}
