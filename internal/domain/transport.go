package domain

import "context"

// SearchClient is the boundary to the peer-to-peer search transport.
// Implementations deliver candidates incrementally and must honor ctx so an
// in-flight search aborts promptly on cancellation or timeout.
type SearchClient interface {
	// Search runs one network search for the given query. onBatch may be
	// invoked multiple times with partial candidate batches before Search
	// returns; it is never invoked after Search returns. The return value is
	// the total number of candidates delivered.
	Search(ctx context.Context, query SearchQuery, onBatch func([]Candidate)) (int, error)
}

// SearchQuery carries the query text plus the transport-level pre-filters the
// network supports natively.
type SearchQuery struct {
	Text           string
	FormatFilter   []string
	MinBitrateKbps int
	MaxBitrateKbps int
}

// TransferClient is the boundary to the peer-to-peer download transport.
type TransferClient interface {
	// Download transfers a single candidate to destinationPath. onProgress
	// receives the cumulative byte count; it may be called concurrently with
	// the transfer and must be cheap. Implementations must honor ctx.
	Download(ctx context.Context, candidate Candidate, destinationPath string, onProgress func(int64)) error
}
