package domain

import "time"

// FeatureDim is the fixed dimensionality of the model feature vector.
const FeatureDim = 21

// FeatureNames lists the vector schema in strict order. The order is a wire
// contract: persisted records and trained model weights both index into it.
var FeatureNames = [FeatureDim]string{
	"age_minutes",
	"liquidity_usd",
	"volume_24h_usd",
	"market_cap_usd",
	"holders",
	"txns_last_5m",
	"sells_last_5m",
	"buy_sell_ratio",
	"rug_score",
	"cluster_bad",
	"mint_auth_renounced",
	"insider_sig",
	"price_pct_1m",
	"price_pct_5m",
	"volume_pct_5m",
	"social_ok",
	"twitter_followers",
	"discord_members",
	"score_total",
	"trend",
	"is_incomplete",
}

// FeatureVector is an ordered numeric tuple with the schema of FeatureNames.
type FeatureVector [FeatureDim]float64

// BuildFeatureVector projects a candidate onto the fixed feature schema.
// Booleans encode as 0/1; the sell ratio is sells/(buys+sells), 0 when no
// recent activity exists.
func BuildFeatureVector(c *Candidate, now time.Time) FeatureVector {
	sellRatio := 0.0
	if total := c.TxnsLast5m + c.SellsLast5m; total > 0 {
		sellRatio = float64(c.SellsLast5m) / float64(total)
	}
	return FeatureVector{
		c.AgeMinutes(now),
		c.LiquidityUSD,
		c.Volume24hUSD,
		c.MarketCapUSD,
		float64(c.Holders),
		float64(c.TxnsLast5m),
		float64(c.SellsLast5m),
		sellRatio,
		float64(c.RugScore),
		boolToFloat(c.ClusterBad),
		boolToFloat(c.MintAuthRenounced),
		boolToFloat(c.InsiderSignal),
		c.PricePct1m,
		c.PricePct5m,
		c.VolumePct5m,
		boolToFloat(c.SocialOK),
		float64(c.TwitterFollowers),
		float64(c.DiscordMembers),
		float64(c.ScoreTotal),
		float64(c.Trend),
		boolToFloat(c.Incomplete),
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Stage records how far a candidate got before its feature vector was
// persisted.
type Stage string

const (
	StageHardFilter Stage = "HARD_FILTER" // rejected before the gate
	StageMLGate     Stage = "ML_GATE"     // reached the gate (admitted or not)
)

// FeatureRecord is one append-only row of the feature store: the vector a
// candidate was scored with, the gate's verdict, and — once the outcome is
// known — a realized-profit label delivered as a separate FeatureLabel row.
type FeatureRecord struct {
	Mint        string
	RecordedAt  time.Time
	Stage       Stage
	Features    FeatureVector
	Probability float64 // gate probability, 0 for pre-gate rejects
	Threshold   float64 // threshold in force at decision time
	Decision    bool    // true = ADMIT
}

// FeatureLabel is the asynchronously-delivered outcome for a feature record,
// appended by the labeler once the position (or lack of one) resolves.
type FeatureLabel struct {
	Mint      string
	LabeledAt time.Time
	PnLPct    float64
	Label     int8 // 1 = win, 0 = loss
}

// LabeledFeature joins a gate-stage record with its resolved label; the
// retraining corpus is a slice of these.
type LabeledFeature struct {
	Features   FeatureVector
	Label      int8
	RecordedAt time.Time
}
