package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RugCheckClient reads contract risk reports from the RugCheck API.
type RugCheckClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger

	mu         sync.Mutex
	lastMint   string
	lastReport *rugReport
}

// NewRugCheckClient creates a client. apiKey may be empty for the public
// rate-limited tier.
func NewRugCheckClient(baseURL, apiKey string, log zerolog.Logger) *RugCheckClient {
	return &RugCheckClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("component", "rugcheck").Logger(),
	}
}

type rugReport struct {
	Score         int     `json:"score_normalised"`
	MintAuthority *string `json:"mintAuthority"`
}

// Score returns the 0..100 safety score for a mint, higher is safer.
// An unknown mint (404) scores 0: unrated is treated as unsafe, which is a
// valid answer, not an outage.
func (c *RugCheckClient) Score(ctx context.Context, mint string) (int, error) {
	report, found, err := c.report(ctx, mint)
	if err != nil {
		return 0, err
	}
	if !found || report.Score < 0 {
		return 0, nil
	}
	if report.Score > 100 {
		return 100, nil
	}
	return report.Score, nil
}

// MintRenounced reports whether the mint authority has been renounced. An
// unknown mint reports false: without a report the authority cannot be
// assumed gone.
func (c *RugCheckClient) MintRenounced(ctx context.Context, mint string) (bool, error) {
	report, found, err := c.report(ctx, mint)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return report.MintAuthority == nil, nil
}

// report fetches the risk report once per mint and caches the last answer;
// Score and MintRenounced both read it during the same evaluation.
func (c *RugCheckClient) report(ctx context.Context, mint string) (*rugReport, bool, error) {
	c.mu.Lock()
	if c.lastMint == mint && c.lastReport != nil {
		report := c.lastReport
		c.mu.Unlock()
		return report, true, nil
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s/tokens/%s/report", c.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("%w: rugcheck status %d", ErrUnavailable, resp.StatusCode)
	}

	var report rugReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, false, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}

	c.mu.Lock()
	c.lastMint = mint
	c.lastReport = &report
	c.mu.Unlock()
	return &report, true, nil
}
