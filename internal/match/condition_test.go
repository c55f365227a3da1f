package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/trackhound/internal/domain"
)

func TestFormatAllowlist_CaseInsensitive(t *testing.T) {
	cond := FormatAllowlist{Formats: []string{"mp3", "flac"}}

	assert.True(t, cond.Met(domain.TrackRequest{}, domain.Candidate{Format: "MP3"}))
	assert.True(t, cond.Met(domain.TrackRequest{}, domain.Candidate{Format: ".flac"}))
	assert.False(t, cond.Met(domain.TrackRequest{}, domain.Candidate{Format: "wav"}))
}

func TestFormatAllowlist_FallsBackToExtension(t *testing.T) {
	cond := FormatAllowlist{Formats: []string{"mp3"}}

	assert.True(t, cond.Met(domain.TrackRequest{}, domain.Candidate{FilePath: `music\artist\track.mp3`}))
	assert.False(t, cond.Met(domain.TrackRequest{}, domain.Candidate{FilePath: `music\artist\track.ogg`}))
}

func TestFormatAllowlist_EmptyListPassesEverything(t *testing.T) {
	cond := FormatAllowlist{}

	assert.True(t, cond.Met(domain.TrackRequest{}, domain.Candidate{Format: "wav"}))
}

func TestBitrateRange_UnknownBitrate(t *testing.T) {
	strict := BitrateRange{Min: 200, Max: 2500}
	lenient := BitrateRange{Min: 200, Max: 2500, AcceptUnknown: true}
	unknown := domain.Candidate{}

	assert.False(t, strict.Met(domain.TrackRequest{}, unknown))
	assert.True(t, lenient.Met(domain.TrackRequest{}, unknown))
}

func TestBitrateRange_Bounds(t *testing.T) {
	cond := BitrateRange{Min: 200, Max: 2500}

	assert.False(t, cond.Met(domain.TrackRequest{}, domain.Candidate{BitrateKbps: 128}))
	assert.True(t, cond.Met(domain.TrackRequest{}, domain.Candidate{BitrateKbps: 320}))
	assert.False(t, cond.Met(domain.TrackRequest{}, domain.Candidate{BitrateKbps: 3000}))
}

func TestLengthTolerance(t *testing.T) {
	cond := LengthTolerance{ToleranceSec: 3}
	req := domain.TrackRequest{Title: "Get Lucky", ExpectedLength: 248}

	assert.True(t, cond.Met(req, domain.Candidate{LengthSeconds: 250}))
	assert.True(t, cond.Met(req, domain.Candidate{LengthSeconds: 245}))
	assert.False(t, cond.Met(req, domain.Candidate{LengthSeconds: 260}))
}

func TestLengthTolerance_NoExpectedLengthPassesEverything(t *testing.T) {
	cond := LengthTolerance{ToleranceSec: 3}

	assert.True(t, cond.Met(domain.TrackRequest{Title: "Get Lucky"}, domain.Candidate{LengthSeconds: 9999}))
}

func TestOwnerFilter(t *testing.T) {
	blocked := OwnerFilter{Blocked: []string{"bad_peer"}}
	assert.False(t, blocked.Met(domain.TrackRequest{}, domain.Candidate{OwnerID: "bad_peer"}))
	assert.True(t, blocked.Met(domain.TrackRequest{}, domain.Candidate{OwnerID: "good_peer"}))

	allowed := OwnerFilter{Allowed: []string{"trusted"}}
	assert.True(t, allowed.Met(domain.TrackRequest{}, domain.Candidate{OwnerID: "trusted"}))
	assert.False(t, allowed.Met(domain.TrackRequest{}, domain.Candidate{OwnerID: "stranger"}))
}

func TestStrictPathMatch(t *testing.T) {
	cond := StrictPathMatch{}
	req := domain.TrackRequest{Artist: "Daft Punk", Title: "Get Lucky"}

	assert.True(t, cond.Met(req, domain.Candidate{FilePath: `music\Daft Punk\01 - Get Lucky.mp3`}))
	assert.False(t, cond.Met(req, domain.Candidate{FilePath: `music\random\01 - Lucky.mp3`}))
}

func TestConditionSet_Score(t *testing.T) {
	cs := &ConditionSet{
		Preferred: []Condition{
			FormatAllowlist{Formats: []string{"flac"}},
			BitrateRange{Min: 200},
		},
	}

	both := domain.Candidate{Format: "flac", BitrateKbps: 900}
	one := domain.Candidate{Format: "mp3", BitrateKbps: 320}
	none := domain.Candidate{Format: "mp3", BitrateKbps: 128}

	assert.Equal(t, 1.0, cs.Score(domain.TrackRequest{}, both))
	assert.Equal(t, 0.5, cs.Score(domain.TrackRequest{}, one))
	assert.Equal(t, 0.0, cs.Score(domain.TrackRequest{}, none))
}

func TestConditionSet_NoPreferredScoresZero(t *testing.T) {
	cs := &ConditionSet{}

	assert.Equal(t, 0.0, cs.Score(domain.TrackRequest{}, domain.Candidate{Format: "flac"}))
}

func TestBuildConditionSet_RequiredAcceptsUnknownMetadata(t *testing.T) {
	cs := BuildConditionSet(domain.ConditionsConfig{
		RequiredFormats:    []string{"mp3"},
		LengthToleranceSec: 3,
		MinBitrateKbps:     200,
	})

	// Unknown length must not hard-exclude a candidate.
	req := domain.TrackRequest{Title: "Get Lucky", ExpectedLength: 248}
	unknownLength := domain.Candidate{Format: "mp3"}
	assert.True(t, cs.EvaluateRequired(req, unknownLength))

	// But unknown bitrate counts as a preferred miss.
	assert.Equal(t, 0.0, cs.Score(req, unknownLength))
}
