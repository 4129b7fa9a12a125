package model

import (
	"fmt"
	"strings"
)

// SignalType enumerates the impact proxy kinds. The set is small and fixed,
// so each type maps to a normalization strategy by a switch, not open-ended
// dispatch.
type SignalType string

const (
	SignalSearchInterest SignalType = "search_interest"
	SignalMarketMovement SignalType = "market_movement"
	SignalVerifiedEvents SignalType = "verified_events"
	SignalOther          SignalType = "other"
)

// ParseSignalType validates a wire-format signal type.
func ParseSignalType(s string) (SignalType, error) {
	switch SignalType(strings.ToLower(strings.TrimSpace(s))) {
	case SignalSearchInterest:
		return SignalSearchInterest, nil
	case SignalMarketMovement:
		return SignalMarketMovement, nil
	case SignalVerifiedEvents:
		return SignalVerifiedEvents, nil
	case SignalOther:
		return SignalOther, nil
	default:
		return "", fmt.Errorf("unknown signal type: %q", s)
	}
}

// ImpactSignal is one external impact proxy observation for an entity and
// time window. Raw carries the collector's value; Normalized is filled in by
// the normalizer and lives in [0,1].
type ImpactSignal struct {
	Entity     string     `json:"entity"`
	Window     Window     `json:"window"`
	Type       SignalType `json:"type"`
	Raw        float64    `json:"raw"`
	Normalized float64    `json:"normalized"`
}
