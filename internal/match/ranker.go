package match

import (
	"sort"

	"github.com/yourusername/trackhound/internal/domain"
)

// RankedCandidate pairs a candidate with the score it earned for a request.
type RankedCandidate struct {
	Candidate domain.Candidate `json:"candidate"`
	Score     float64          `json:"score"`
}

// Rank filters and orders the raw candidate list for one request. Candidates
// failing any required condition are dropped; the rest are ordered by score
// descending, then bitrate descending, then distance to the request's
// expected length ascending, then (owner, path) ascending as the
// deterministic final tie-break. An empty return means no candidate survived
// filtering and the caller should report the request as unmatched.
func Rank(req domain.TrackRequest, candidates []domain.Candidate, conditions *ConditionSet) []RankedCandidate {
	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, cand := range candidates {
		if !conditions.EvaluateRequired(req, cand) {
			continue
		}
		ranked = append(ranked, RankedCandidate{
			Candidate: cand,
			Score:     conditions.Score(req, cand),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Candidate.BitrateKbps != b.Candidate.BitrateKbps {
			return a.Candidate.BitrateKbps > b.Candidate.BitrateKbps
		}
		da := lengthDistance(req, a.Candidate)
		db := lengthDistance(req, b.Candidate)
		if da != db {
			return da < db
		}
		if a.Candidate.OwnerID != b.Candidate.OwnerID {
			return a.Candidate.OwnerID < b.Candidate.OwnerID
		}
		return a.Candidate.FilePath < b.Candidate.FilePath
	})

	return ranked
}

// lengthDistance is the absolute difference between the candidate's length
// and the request's expected length. Unknown lengths sort behind every known
// length at the same score and bitrate.
func lengthDistance(req domain.TrackRequest, cand domain.Candidate) int {
	if req.ExpectedLength <= 0 {
		return 0
	}
	if !cand.HasLength() {
		const unknownPenalty = 1 << 30
		return unknownPenalty
	}
	d := cand.LengthSeconds - req.ExpectedLength
	if d < 0 {
		d = -d
	}
	return d
}
