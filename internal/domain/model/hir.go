package model

import (
	"encoding/json"
	"math"
	"time"
)

// Classification is the outcome of HIR scoring for a cluster/window pair.
type Classification string

const (
	// ClassAct flags probable overhype: coverage far ahead of impact.
	ClassAct Classification = "Act"
	// ClassMonitor is the middle band: coverage and impact roughly aligned.
	ClassMonitor Classification = "Monitor"
	// ClassIgnore is the true no-signal case: coverage below the minimum
	// floor, nothing to conclude either way.
	ClassIgnore Classification = "Ignore"
	// ClassUnderreported flags possible underreporting: meaningful coverage
	// yet HIR below the low threshold (impact outpacing attention).
	ClassUnderreported Classification = "Underreported"
	// ClassInsufficientData means impact was undefined for the window; it is
	// an explicit state, never a silent default.
	ClassInsufficientData Classification = "InsufficientData"
)

// SourceWeight is one source's credibility contribution inside an evidence
// snapshot.
type SourceWeight struct {
	Source string  `json:"source"`
	Weight float64 `json:"weight"`
}

// Evidence is the frozen view of cluster state used to produce a HIRRecord.
// It is persisted verbatim and never recomputed from later cluster state.
type Evidence struct {
	MemberCount       int            `json:"member_count"`
	TopSources        []SourceWeight `json:"top_sources"`
	WeightedSentiment float64        `json:"weighted_sentiment"`
}

// HIRRecord is one append-only scoring fact for a (cluster, window) pair.
// HIR may be +Inf (impact zero with nonzero coverage) or undefined
// (HIRDefined false) when impact was undefined.
type HIRRecord struct {
	ID             string         `json:"id"`
	ClusterID      string         `json:"cluster_id"`
	Entity         string         `json:"entity"`
	Window         Window         `json:"window"`
	Coverage       float64        `json:"coverage"`
	Impact         float64        `json:"impact"`
	ImpactDefined  bool           `json:"impact_defined"`
	HIR            float64        `json:"hir"`
	HIRDefined     bool           `json:"hir_defined"`
	Classification Classification `json:"classification"`
	Evidence       Evidence       `json:"evidence"`
	CreatedAt      time.Time      `json:"created_at"`
}

// MarshalJSON renders HIR as null when undefined and as the string
// "Infinity" for the zero-impact case, since JSON has no float infinity.
func (r HIRRecord) MarshalJSON() ([]byte, error) {
	type alias HIRRecord
	out := struct {
		alias
		HIR any `json:"hir"`
	}{alias: alias(r)}
	switch {
	case !r.HIRDefined:
		out.HIR = nil
	case math.IsInf(r.HIR, 1):
		out.HIR = "Infinity"
	default:
		out.HIR = r.HIR
	}
	return json.Marshal(out)
}
