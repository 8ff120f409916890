package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Supply concentration bounds: a mint where the top holders control more
// than maxShareTop10 of the supply reads as a coordinated cluster.
const (
	maxShareTop10 = 0.20
	topHolders    = 10
)

// HeliusClient checks token supply concentration over the Helius RPC
// endpoint.
type HeliusClient struct {
	rpcURL string
	apiKey string
	http   *http.Client
	log    zerolog.Logger
}

// NewHeliusClient creates a client against rpcURL
// (https://mainnet.helius-rpc.com in production). The API key is required.
func NewHeliusClient(rpcURL, apiKey string, log zerolog.Logger) *HeliusClient {
	return &HeliusClient{
		rpcURL: rpcURL,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 10 * time.Second},
		log:    log.With().Str("component", "helius").Logger(),
	}
}

type tokenAmount struct {
	Amount string `json:"amount"`
}

// Suspicious implements the soft score's ClusterInspector: true when the
// top-10 holders control over 20% of the supply. The creator is not needed;
// concentration is read from the mint itself.
func (c *HeliusClient) Suspicious(ctx context.Context, mint, _ string) (bool, error) {
	var largest struct {
		Value []tokenAmount `json:"value"`
	}
	if err := c.rpc(ctx, "getTokenLargestAccounts", mint, &largest); err != nil {
		return false, err
	}
	var supply struct {
		Value tokenAmount `json:"value"`
	}
	if err := c.rpc(ctx, "getTokenSupply", mint, &supply); err != nil {
		return false, err
	}

	total, _ := strconv.ParseFloat(supply.Value.Amount, 64)
	if total <= 0 {
		return false, nil
	}

	accounts := largest.Value
	if len(accounts) > topHolders {
		accounts = accounts[:topHolders]
	}
	var topSum float64
	for _, acc := range accounts {
		amount, _ := strconv.ParseFloat(acc.Amount, 64)
		topSum += amount
	}

	share := topSum / total
	bad := share > maxShareTop10
	c.log.Debug().Str("mint", mint).Float64("share_top10", share).Bool("bad", bad).Msg("cluster check")
	return bad, nil
}

// rpc runs one JSON-RPC call and decodes result into out.
func (c *HeliusClient) rpc(ctx context.Context, method, mint string, out any) error {
	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []any{mint},
	})
	if err != nil {
		return fmt.Errorf("marshal rpc payload: %w", err)
	}

	url := fmt.Sprintf("%s/?api-key=%s", c.rpcURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: helius status %d", ErrUnavailable, resp.StatusCode)
	}

	var body struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if body.Error != nil {
		return fmt.Errorf("%w: helius rpc: %s", ErrUnavailable, body.Error.Message)
	}
	if len(body.Result) == 0 {
		return fmt.Errorf("%w: empty rpc result", ErrUnavailable)
	}
	return json.Unmarshal(body.Result, out)
}
