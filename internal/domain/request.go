package domain

import (
	"fmt"
	"strings"
)

// TrackRequest represents one user-requested track to locate on the network.
// Requests are immutable once created; identity is the ordinal within a batch.
type TrackRequest struct {
	Artist         string `json:"artist"`
	Title          string `json:"title"`
	Album          string `json:"album,omitempty"`
	ExpectedLength int    `json:"expected_length,omitempty"` // seconds, 0 = unknown
	SourceLabel    string `json:"source_label,omitempty"`
}

// Query returns the search string sent to the network for this request.
func (r TrackRequest) Query() string {
	parts := make([]string, 0, 2)
	if r.Artist != "" {
		parts = append(parts, r.Artist)
	}
	if r.Title != "" {
		parts = append(parts, r.Title)
	}
	return strings.Join(parts, " ")
}

// String returns a human-readable label for logging.
func (r TrackRequest) String() string {
	if r.Artist == "" {
		return r.Title
	}
	return fmt.Sprintf("%s - %s", r.Artist, r.Title)
}

// Candidate is one concrete file offered by a remote peer in response to a
// search. Candidates are produced only by the search transport and never
// mutated. Zero values for BitrateKbps, SampleRateHz and LengthSeconds mean
// the peer did not report that attribute.
type Candidate struct {
	OwnerID       string `json:"owner_id"`
	FilePath      string `json:"file_path"`
	Directory     string `json:"directory,omitempty"`
	Format        string `json:"format"`
	BitrateKbps   int    `json:"bitrate_kbps,omitempty"`
	SampleRateHz  int    `json:"sample_rate_hz,omitempty"`
	SizeBytes     int64  `json:"size_bytes,omitempty"`
	LengthSeconds int    `json:"length_seconds,omitempty"`
}

// HasBitrate reports whether the peer reported a bitrate.
func (c Candidate) HasBitrate() bool { return c.BitrateKbps > 0 }

// HasLength reports whether the peer reported a track length.
func (c Candidate) HasLength() bool { return c.LengthSeconds > 0 }

// HasSampleRate reports whether the peer reported a sample rate.
func (c Candidate) HasSampleRate() bool { return c.SampleRateHz > 0 }
