// Package match implements the candidate filtering and ranking rules used to
// pick the best file for a track request.
package match

import (
	"strings"

	"github.com/yourusername/trackhound/internal/domain"
)

// Condition is a pure predicate over a candidate, evaluated against the
// request it is a candidate for. Conditions carry no mutable state; a
// ConditionSet is built once per orchestration run from configuration.
type Condition interface {
	// Met reports whether the candidate satisfies the condition.
	Met(req domain.TrackRequest, cand domain.Candidate) bool

	// Name identifies the condition in logs and diagnostics.
	Name() string
}

// FormatAllowlist passes candidates whose format is in the list.
// Matching is case-insensitive; an empty list passes everything.
type FormatAllowlist struct {
	Formats []string
}

func (f FormatAllowlist) Name() string { return "format" }

func (f FormatAllowlist) Met(_ domain.TrackRequest, cand domain.Candidate) bool {
	if len(f.Formats) == 0 {
		return true
	}
	format := strings.ToLower(strings.TrimPrefix(cand.Format, "."))
	if format == "" {
		// Fall back to the file extension when the peer omitted the format.
		if i := strings.LastIndex(cand.FilePath, "."); i >= 0 {
			format = strings.ToLower(cand.FilePath[i+1:])
		}
	}
	for _, want := range f.Formats {
		if format == strings.ToLower(strings.TrimPrefix(want, ".")) {
			return true
		}
	}
	return false
}

// BitrateRange passes candidates whose bitrate falls in [Min, Max].
// AcceptUnknown controls how candidates without a reported bitrate are
// treated: required conditions are built with AcceptUnknown so unknown
// metadata never hard-excludes a candidate, while preferred conditions score
// unknowns as a miss.
type BitrateRange struct {
	Min, Max      int
	AcceptUnknown bool
}

func (b BitrateRange) Name() string { return "bitrate" }

func (b BitrateRange) Met(_ domain.TrackRequest, cand domain.Candidate) bool {
	if !cand.HasBitrate() {
		return b.AcceptUnknown
	}
	if b.Min > 0 && cand.BitrateKbps < b.Min {
		return false
	}
	if b.Max > 0 && cand.BitrateKbps > b.Max {
		return false
	}
	return true
}

// SampleRateRange passes candidates whose sample rate falls in [Min, Max].
type SampleRateRange struct {
	Min, Max      int
	AcceptUnknown bool
}

func (s SampleRateRange) Name() string { return "sample_rate" }

func (s SampleRateRange) Met(_ domain.TrackRequest, cand domain.Candidate) bool {
	if !cand.HasSampleRate() {
		return s.AcceptUnknown
	}
	if s.Min > 0 && cand.SampleRateHz < s.Min {
		return false
	}
	if s.Max > 0 && cand.SampleRateHz > s.Max {
		return false
	}
	return true
}

// LengthTolerance passes candidates whose length is within ToleranceSec of
// the request's expected length. Requests without an expected length pass
// everything.
type LengthTolerance struct {
	ToleranceSec  int
	AcceptUnknown bool
}

func (l LengthTolerance) Name() string { return "length" }

func (l LengthTolerance) Met(req domain.TrackRequest, cand domain.Candidate) bool {
	if req.ExpectedLength <= 0 {
		return true
	}
	if !cand.HasLength() {
		return l.AcceptUnknown
	}
	diff := cand.LengthSeconds - req.ExpectedLength
	if diff < 0 {
		diff = -diff
	}
	return diff <= l.ToleranceSec
}

// OwnerFilter passes candidates by peer id: a non-empty Allowed list acts as
// an allowlist, and Blocked always excludes.
type OwnerFilter struct {
	Allowed []string
	Blocked []string
}

func (o OwnerFilter) Name() string { return "owner" }

func (o OwnerFilter) Met(_ domain.TrackRequest, cand domain.Candidate) bool {
	for _, id := range o.Blocked {
		if cand.OwnerID == id {
			return false
		}
	}
	if len(o.Allowed) == 0 {
		return true
	}
	for _, id := range o.Allowed {
		if cand.OwnerID == id {
			return true
		}
	}
	return false
}

// StrictPathMatch passes candidates whose file path contains every word of
// the request's artist and title.
type StrictPathMatch struct{}

func (StrictPathMatch) Name() string { return "strict_path" }

func (StrictPathMatch) Met(req domain.TrackRequest, cand domain.Candidate) bool {
	path := strings.ToLower(cand.FilePath)
	for _, word := range strings.Fields(strings.ToLower(req.Artist + " " + req.Title)) {
		if !strings.Contains(path, word) {
			return false
		}
	}
	return true
}

// ConditionSet groups the required (hard) and preferred (soft) conditions for
// one orchestration run.
type ConditionSet struct {
	Required  []Condition
	Preferred []Condition
}

// EvaluateRequired reports whether the candidate passes every required
// condition.
func (cs *ConditionSet) EvaluateRequired(req domain.TrackRequest, cand domain.Candidate) bool {
	for _, c := range cs.Required {
		if !c.Met(req, cand) {
			return false
		}
	}
	return true
}

// Score returns the fraction of preferred conditions the candidate satisfies,
// in [0, 1]. No preferred conditions configured scores 0; there is no partial
// credit within a single condition.
func (cs *ConditionSet) Score(req domain.TrackRequest, cand domain.Candidate) float64 {
	if len(cs.Preferred) == 0 {
		return 0
	}
	met := 0
	for _, c := range cs.Preferred {
		if c.Met(req, cand) {
			met++
		}
	}
	return float64(met) / float64(len(cs.Preferred))
}

// BuildConditionSet constructs the condition set from configuration.
// Metadata-dependent required conditions accept candidates with unknown
// metadata; the same checks used as preferred conditions count unknowns as
// misses.
func BuildConditionSet(cfg domain.ConditionsConfig) *ConditionSet {
	cs := &ConditionSet{}

	if len(cfg.RequiredFormats) > 0 {
		cs.Required = append(cs.Required, FormatAllowlist{Formats: cfg.RequiredFormats})
	}
	if len(cfg.AllowedOwners) > 0 || len(cfg.BlockedOwners) > 0 {
		cs.Required = append(cs.Required, OwnerFilter{Allowed: cfg.AllowedOwners, Blocked: cfg.BlockedOwners})
	}
	if cfg.StrictPathMatch {
		cs.Required = append(cs.Required, StrictPathMatch{})
	}
	if cfg.LengthToleranceSec > 0 {
		cs.Required = append(cs.Required, LengthTolerance{ToleranceSec: cfg.LengthToleranceSec, AcceptUnknown: true})
	}

	if len(cfg.PreferredFormats) > 0 {
		cs.Preferred = append(cs.Preferred, FormatAllowlist{Formats: cfg.PreferredFormats})
	}
	if cfg.MinBitrateKbps > 0 || cfg.MaxBitrateKbps > 0 {
		cs.Preferred = append(cs.Preferred, BitrateRange{Min: cfg.MinBitrateKbps, Max: cfg.MaxBitrateKbps})
	}
	if cfg.MinSampleRateHz > 0 || cfg.MaxSampleRateHz > 0 {
		cs.Preferred = append(cs.Preferred, SampleRateRange{Min: cfg.MinSampleRateHz, Max: cfg.MaxSampleRateHz})
	}

	return cs
}
