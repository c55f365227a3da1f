package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/trackhound/internal/domain"
)

func TestRank_FiltersAndOrders(t *testing.T) {
	req := domain.TrackRequest{Artist: "Daft Punk", Title: "Get Lucky", ExpectedLength: 248}
	conditions := BuildConditionSet(domain.ConditionsConfig{
		RequiredFormats: []string{"mp3", "flac"},
		MinBitrateKbps:  200,
		MaxBitrateKbps:  2500,
	})

	candidates := []domain.Candidate{
		{OwnerID: "a", FilePath: "get_lucky.wav", Format: "wav", BitrateKbps: 1411, LengthSeconds: 248},
		{OwnerID: "b", FilePath: "get_lucky_128.mp3", Format: "mp3", BitrateKbps: 128, LengthSeconds: 248},
		{OwnerID: "c", FilePath: "get_lucky_320.mp3", Format: "mp3", BitrateKbps: 320, LengthSeconds: 250},
	}

	ranked := Rank(req, candidates, conditions)

	// wav is excluded; 320kbps wins on score despite the worse length match.
	require.Len(t, ranked, 2)
	assert.Equal(t, "c", ranked[0].Candidate.OwnerID)
	assert.Equal(t, "b", ranked[1].Candidate.OwnerID)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}

func TestRank_NoRequiredFailureSurvives(t *testing.T) {
	req := domain.TrackRequest{Title: "Track"}
	conditions := BuildConditionSet(domain.ConditionsConfig{
		RequiredFormats: []string{"flac"},
	})

	candidates := []domain.Candidate{
		{OwnerID: "a", FilePath: "track.mp3", Format: "mp3"},
		{OwnerID: "b", FilePath: "track.flac", Format: "flac"},
		{OwnerID: "c", FilePath: "track.ogg", Format: "ogg"},
	}

	ranked := Rank(req, candidates, conditions)

	require.Len(t, ranked, 1)
	assert.Equal(t, "b", ranked[0].Candidate.OwnerID)
}

func TestRank_OrderInvariants(t *testing.T) {
	req := domain.TrackRequest{Title: "Track", ExpectedLength: 200}
	conditions := BuildConditionSet(domain.ConditionsConfig{
		PreferredFormats: []string{"flac"},
		MinBitrateKbps:   200,
	})

	candidates := []domain.Candidate{
		{OwnerID: "a", FilePath: "1.mp3", Format: "mp3", BitrateKbps: 320, LengthSeconds: 210},
		{OwnerID: "b", FilePath: "2.flac", Format: "flac", BitrateKbps: 900, LengthSeconds: 199},
		{OwnerID: "c", FilePath: "3.mp3", Format: "mp3", BitrateKbps: 320, LengthSeconds: 201},
		{OwnerID: "d", FilePath: "4.mp3", Format: "mp3", BitrateKbps: 128, LengthSeconds: 200},
		{OwnerID: "e", FilePath: "5.flac", Format: "flac", BitrateKbps: 900},
	}

	ranked := Rank(req, candidates, conditions)
	require.Len(t, ranked, 5)

	for i := 1; i < len(ranked); i++ {
		prev, cur := ranked[i-1], ranked[i]
		assert.GreaterOrEqual(t, prev.Score, cur.Score)
		if prev.Score == cur.Score {
			assert.GreaterOrEqual(t, prev.Candidate.BitrateKbps, cur.Candidate.BitrateKbps)
			if prev.Candidate.BitrateKbps == cur.Candidate.BitrateKbps {
				assert.LessOrEqual(t,
					lengthDistance(req, prev.Candidate),
					lengthDistance(req, cur.Candidate))
			}
		}
	}

	// Unknown length sorts behind the known length at the same score/bitrate.
	assert.Equal(t, "b", ranked[0].Candidate.OwnerID)
	assert.Equal(t, "e", ranked[1].Candidate.OwnerID)
}

func TestRank_DeterministicTieBreak(t *testing.T) {
	req := domain.TrackRequest{Title: "Track"}
	conditions := BuildConditionSet(domain.ConditionsConfig{})

	candidates := []domain.Candidate{
		{OwnerID: "zed", FilePath: "track.mp3", BitrateKbps: 320},
		{OwnerID: "amy", FilePath: "track.mp3", BitrateKbps: 320},
		{OwnerID: "amy", FilePath: "albums/track.mp3", BitrateKbps: 320},
	}

	ranked := Rank(req, candidates, conditions)

	require.Len(t, ranked, 3)
	assert.Equal(t, "amy", ranked[0].Candidate.OwnerID)
	assert.Equal(t, "albums/track.mp3", ranked[0].Candidate.FilePath)
	assert.Equal(t, "track.mp3", ranked[1].Candidate.FilePath)
	assert.Equal(t, "zed", ranked[2].Candidate.OwnerID)
}

func TestRank_EmptyInput(t *testing.T) {
	ranked := Rank(domain.TrackRequest{Title: "Track"}, nil, BuildConditionSet(domain.ConditionsConfig{}))

	assert.Empty(t, ranked)
}
