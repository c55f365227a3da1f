package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yourusername/trackhound/internal/domain"
)

// SlskdClient implements domain.SearchClient and domain.TransferClient
// against a slskd daemon's REST API. Searches and transfers run through
// separate token buckets because the network enforces distinct rate limits
// for the two; sharing one bucket would trade search throughput against
// transfer throughput and risk service-level bans.
type SlskdClient struct {
	baseURL       string
	apiKey        string
	pollInterval  time.Duration
	httpClient    *http.Client
	searchLimit   *rate.Limiter
	downloadLimit *rate.Limiter
	logger        *zap.Logger
}

// NewSlskdClient creates a client for the given slskd endpoint.
func NewSlskdClient(cfg *domain.SlskdConfig, search *domain.SearchConfig, transfer *domain.TransferConfig, logger *zap.Logger) *SlskdClient {
	perMinute := func(n int) *rate.Limiter {
		if n <= 0 {
			return rate.NewLimiter(rate.Inf, 1)
		}
		return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
	return &SlskdClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		pollInterval:  cfg.PollInterval,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		searchLimit:   perMinute(search.RatePerMinute),
		downloadLimit: perMinute(transfer.RatePerMinute),
		logger:        logger,
	}
}

// slskdFile is one file entry in a slskd search response.
type slskdFile struct {
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	Extension  string `json:"extension"`
	BitRate    int    `json:"bitRate"`
	Length     int    `json:"length"`
	SampleRate int    `json:"sampleRate"`
}

// slskdResponse is one peer's response to a search.
type slskdResponse struct {
	Username string      `json:"username"`
	Files    []slskdFile `json:"files"`
}

// slskdSearchState is the polled state of a running search.
type slskdSearchState struct {
	ID         string          `json:"id"`
	IsComplete bool            `json:"isComplete"`
	Responses  []slskdResponse `json:"responses"`
}

// Search starts a network search and polls the daemon, delivering peer
// responses incrementally through onBatch as they arrive. It returns the
// total number of candidates delivered.
func (c *SlskdClient) Search(ctx context.Context, query domain.SearchQuery, onBatch func([]domain.Candidate)) (int, error) {
	if err := c.searchLimit.Wait(ctx); err != nil {
		return 0, err
	}

	searchID := uuid.New().String()
	body := map[string]interface{}{
		"id":         searchID,
		"searchText": query.Text,
	}
	if err := c.do(ctx, http.MethodPost, "/api/v0/searches", body, nil); err != nil {
		return 0, fmt.Errorf("failed to start search: %w", err)
	}
	// Best effort: free the daemon-side search state when we stop caring.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.do(cleanupCtx, http.MethodDelete, "/api/v0/searches/"+searchID, nil, nil)
	}()

	total := 0
	delivered := 0
	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		var state slskdSearchState
		path := "/api/v0/searches/" + searchID + "?includeResponses=true"
		if err := c.do(ctx, http.MethodGet, path, nil, &state); err != nil {
			return total, fmt.Errorf("failed to poll search: %w", err)
		}

		// Responses accumulate daemon-side; only the tail is new.
		if len(state.Responses) > delivered {
			fresh := state.Responses[delivered:]
			delivered = len(state.Responses)

			batch := make([]domain.Candidate, 0, len(fresh))
			for _, resp := range fresh {
				for _, f := range resp.Files {
					batch = append(batch, toCandidate(resp.Username, f))
				}
			}
			if len(batch) > 0 {
				total += len(batch)
				onBatch(batch)
			}
		}

		if state.IsComplete {
			return total, nil
		}
	}
}

// toCandidate maps a slskd file entry onto the engine's candidate model.
// Missing metadata stays at the zero value.
func toCandidate(username string, f slskdFile) domain.Candidate {
	format := strings.ToLower(strings.TrimPrefix(f.Extension, "."))
	if format == "" {
		if i := strings.LastIndex(f.Filename, "."); i >= 0 {
			format = strings.ToLower(f.Filename[i+1:])
		}
	}
	dir := ""
	if i := strings.LastIndexAny(f.Filename, "\\/"); i >= 0 {
		dir = f.Filename[:i]
	}
	return domain.Candidate{
		OwnerID:       username,
		FilePath:      f.Filename,
		Directory:     dir,
		Format:        format,
		BitrateKbps:   f.BitRate,
		SampleRateHz:  f.SampleRate,
		SizeBytes:     f.Size,
		LengthSeconds: f.Length,
	}
}

// slskdTransfer is the polled state of one download.
type slskdTransfer struct {
	Filename         string `json:"filename"`
	State            string `json:"state"`
	BytesTransferred int64  `json:"bytesTransferred"`
}

// slskdDownloadGroup is the daemon's per-user download listing.
type slskdDownloadGroup struct {
	Username    string `json:"username"`
	Directories []struct {
		Files []slskdTransfer `json:"files"`
	} `json:"directories"`
}

// Download asks the daemon to fetch the candidate from its owner and polls
// until the transfer reaches a terminal state. The daemon writes the file
// under its own configured download root; destinationPath is recorded by the
// caller but not enforced here. onProgress receives cumulative bytes.
func (c *SlskdClient) Download(ctx context.Context, cand domain.Candidate, destinationPath string, onProgress func(int64)) error {
	if err := c.downloadLimit.Wait(ctx); err != nil {
		return err
	}

	enqueue := []map[string]interface{}{
		{"filename": cand.FilePath, "size": cand.SizeBytes},
	}
	userPath := "/api/v0/transfers/downloads/" + url.PathEscape(cand.OwnerID)
	if err := c.do(ctx, http.MethodPost, userPath, enqueue, nil); err != nil {
		return fmt.Errorf("failed to request transfer: %w", err)
	}

	c.logger.Debug("Transfer requested",
		zap.String("owner", cand.OwnerID),
		zap.String("file", cand.FilePath),
		zap.String("destination", destinationPath))

	for {
		select {
		case <-ctx.Done():
			// Tell the daemon to stop the transfer before giving up.
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = c.do(cleanupCtx, http.MethodDelete, userPath+"?remove=false", nil, nil)
			cancel()
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}

		var group slskdDownloadGroup
		if err := c.do(ctx, http.MethodGet, userPath, nil, &group); err != nil {
			return fmt.Errorf("failed to poll transfer: %w", err)
		}

		transfer, found := findTransfer(&group, cand.FilePath)
		if !found {
			continue
		}
		if onProgress != nil {
			onProgress(transfer.BytesTransferred)
		}

		switch {
		case strings.Contains(transfer.State, "Succeeded"):
			return nil
		case strings.Contains(transfer.State, "Cancelled"):
			return fmt.Errorf("transfer cancelled by daemon")
		case strings.Contains(transfer.State, "Errored"),
			strings.Contains(transfer.State, "Rejected"),
			strings.Contains(transfer.State, "TimedOut"):
			return fmt.Errorf("transfer ended in state %q", transfer.State)
		}
	}
}

func findTransfer(group *slskdDownloadGroup, filename string) (slskdTransfer, bool) {
	for _, dir := range group.Directories {
		for _, f := range dir.Files {
			if f.Filename == filename {
				return f, true
			}
		}
	}
	return slskdTransfer{}, false
}

// do performs one JSON request against the daemon.
func (c *SlskdClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slskd returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
