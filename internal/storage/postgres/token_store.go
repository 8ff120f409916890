package postgres

import (
	"context"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `
	mint, symbol, name, creator, discovered_via, discovered_at, created_at,
	liquidity_usd, volume_24h_usd, market_cap_usd, holders,
	txns_last_5m, sells_last_5m, price_pct_1m, price_pct_5m, volume_pct_5m,
	rug_score, cluster_bad, mint_auth_renounced, insider_signal,
	social_ok, twitter_followers, discord_members, trend, score_total, incomplete
`

// Upsert inserts the candidate or refreshes its snapshot fields.
// ON CONFLICT keeps discovered_via/discovered_at from the first row.
func (s *TokenStore) Upsert(ctx context.Context, c *domain.Candidate) error {
	if c == nil || c.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		ON CONFLICT (mint) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			creator = EXCLUDED.creator,
			created_at = EXCLUDED.created_at,
			liquidity_usd = EXCLUDED.liquidity_usd,
			volume_24h_usd = EXCLUDED.volume_24h_usd,
			market_cap_usd = EXCLUDED.market_cap_usd,
			holders = EXCLUDED.holders,
			txns_last_5m = EXCLUDED.txns_last_5m,
			sells_last_5m = EXCLUDED.sells_last_5m,
			price_pct_1m = EXCLUDED.price_pct_1m,
			price_pct_5m = EXCLUDED.price_pct_5m,
			volume_pct_5m = EXCLUDED.volume_pct_5m,
			rug_score = EXCLUDED.rug_score,
			cluster_bad = EXCLUDED.cluster_bad,
			mint_auth_renounced = EXCLUDED.mint_auth_renounced,
			insider_signal = EXCLUDED.insider_signal,
			social_ok = EXCLUDED.social_ok,
			twitter_followers = EXCLUDED.twitter_followers,
			discord_members = EXCLUDED.discord_members,
			trend = EXCLUDED.trend,
			score_total = EXCLUDED.score_total,
			incomplete = EXCLUDED.incomplete
	`

	_, err := s.pool.Exec(ctx, query,
		c.Mint, c.Symbol, c.Name, c.Creator, string(c.DiscoveredVia), c.DiscoveredAt, c.CreatedAt,
		c.LiquidityUSD, c.Volume24hUSD, c.MarketCapUSD, c.Holders,
		c.TxnsLast5m, c.SellsLast5m, c.PricePct1m, c.PricePct5m, c.VolumePct5m,
		c.RugScore, c.ClusterBad, c.MintAuthRenounced, c.InsiderSignal,
		c.SocialOK, c.TwitterFollowers, c.DiscordMembers, c.Trend, c.ScoreTotal, c.Incomplete,
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// GetByMint retrieves a candidate by mint. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(ctx context.Context, mint string) (*domain.Candidate, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE mint = $1`

	var c domain.Candidate
	var via string
	err := s.pool.QueryRow(ctx, query, mint).Scan(
		&c.Mint, &c.Symbol, &c.Name, &c.Creator, &via, &c.DiscoveredAt, &c.CreatedAt,
		&c.LiquidityUSD, &c.Volume24hUSD, &c.MarketCapUSD, &c.Holders,
		&c.TxnsLast5m, &c.SellsLast5m, &c.PricePct1m, &c.PricePct5m, &c.VolumePct5m,
		&c.RugScore, &c.ClusterBad, &c.MintAuthRenounced, &c.InsiderSignal,
		&c.SocialOK, &c.TwitterFollowers, &c.DiscordMembers, &c.Trend, &c.ScoreTotal, &c.Incomplete,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by mint: %w", err)
	}
	c.DiscoveredVia = domain.Source(via)
	return &c, nil
}

// Seen reports whether a mint has ever been evaluated.
func (s *TokenStore) Seen(ctx context.Context, mint string) (bool, error) {
	var seen bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tokens WHERE mint = $1)`, mint).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("check token seen: %w", err)
	}
	return seen, nil
}
