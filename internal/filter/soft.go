package filter

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"solana-sniper/internal/config"
	"solana-sniper/internal/domain"
)

// ErrCollaboratorUnavailable marks a signal source that could not answer.
// The signal contributes zero; the candidate is never rejected for it.
var ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

// Collaborator interfaces. Each returns its signal value or an error wrapping
// ErrCollaboratorUnavailable.

// RugChecker rates contract risk 0..100, higher is safer.
type RugChecker interface {
	Score(ctx context.Context, mint string) (int, error)
}

// AuthorityChecker reports whether the mint authority has been renounced.
type AuthorityChecker interface {
	MintRenounced(ctx context.Context, mint string) (bool, error)
}

// ClusterInspector reports whether the creator's wallet cluster looks
// coordinated.
type ClusterInspector interface {
	Suspicious(ctx context.Context, mint, creator string) (bool, error)
}

// SocialChecker reports social presence for a token.
type SocialChecker interface {
	Check(ctx context.Context, mint string) (ok bool, twitter, discord int, err error)
}

// TrendSignaler reports short-term momentum: -1 down, 0 flat, +1 up.
type TrendSignaler interface {
	Trend(ctx context.Context, mint string) (int, error)
}

// InsiderDetector reports whether early buys look like insider wallets.
type InsiderDetector interface {
	Detect(ctx context.Context, mint string) (bool, error)
}

// Score point weights. The maximum composite is 95.
const (
	pointsLiquidity = 15
	pointsVolume    = 20
	pointsHolders   = 10
	pointsRug       = 15
	pointsCluster   = 15
	pointsSocial    = 10
	pointsInsider   = 10

	rugSafeScore = 70
)

// SoftScorer computes the weighted composite score from market numbers and
// collaborator signals, mutating the candidate's signal fields along the way.
type SoftScorer struct {
	rug       RugChecker
	authority AuthorityChecker
	cluster   ClusterInspector
	social    SocialChecker
	trend     TrendSignaler
	insider   InsiderDetector
	minScore  int

	minLiquidityUSD float64
	minVolumeUSD    float64
	minHolders      int

	log zerolog.Logger
}

// NewSoftScorer creates a SoftScorer. Any collaborator may be nil; a nil
// collaborator behaves as permanently unavailable.
func NewSoftScorer(cfg *config.Config, rug RugChecker, authority AuthorityChecker, cluster ClusterInspector, social SocialChecker, trend TrendSignaler, insider InsiderDetector, log zerolog.Logger) *SoftScorer {
	return &SoftScorer{
		rug:             rug,
		authority:       authority,
		cluster:         cluster,
		social:          social,
		trend:           trend,
		insider:         insider,
		minScore:        cfg.MinScoreTotal,
		minLiquidityUSD: cfg.MinLiquidityUSD,
		minVolumeUSD:    cfg.MinVolumeUSD24h,
		minHolders:      cfg.MinHolders,
		log:             log.With().Str("component", "soft_score").Logger(),
	}
}

// Evaluate fills the candidate's signal fields, computes ScoreTotal, and
// passes when the composite reaches the configured minimum. Collaborator
// failures degrade the score instead of rejecting.
func (s *SoftScorer) Evaluate(ctx context.Context, c *domain.Candidate) Verdict {
	score := 0

	if c.LiquidityUSD >= 2*s.minLiquidityUSD {
		score += pointsLiquidity
	}
	if c.Volume24hUSD >= 3*s.minVolumeUSD {
		score += pointsVolume
	}
	if c.Holders >= 2*s.minHolders {
		score += pointsHolders
	}

	if s.rug != nil {
		if rugScore, err := s.rug.Score(ctx, c.Mint); err == nil {
			c.RugScore = rugScore
			if rugScore >= rugSafeScore {
				score += pointsRug
			}
		} else {
			s.unavailable(c.Mint, "rug", err)
		}
	}

	// Renounced mint authority carries no points of its own; the signal
	// feeds the gate's feature vector.
	if s.authority != nil {
		if renounced, err := s.authority.MintRenounced(ctx, c.Mint); err == nil {
			c.MintAuthRenounced = renounced
		} else {
			s.unavailable(c.Mint, "authority", err)
		}
	}

	if s.cluster != nil {
		if bad, err := s.cluster.Suspicious(ctx, c.Mint, c.Creator); err == nil {
			c.ClusterBad = bad
			if !bad {
				score += pointsCluster
			}
		} else {
			s.unavailable(c.Mint, "cluster", err)
		}
	}

	if s.social != nil {
		if ok, twitter, discord, err := s.social.Check(ctx, c.Mint); err == nil {
			c.SocialOK = ok
			c.TwitterFollowers = twitter
			c.DiscordMembers = discord
			if ok {
				score += pointsSocial
			}
		} else {
			s.unavailable(c.Mint, "social", err)
		}
	}

	if s.insider != nil {
		if insider, err := s.insider.Detect(ctx, c.Mint); err == nil {
			c.InsiderSignal = insider
			if !insider {
				score += pointsInsider
			}
		} else {
			s.unavailable(c.Mint, "insider", err)
		}
	}

	if s.trend != nil {
		if trend, err := s.trend.Trend(ctx, c.Mint); err == nil {
			c.Trend = trend
		} else {
			s.unavailable(c.Mint, "trend", err)
		}
	}

	c.ScoreTotal = score
	if score < s.minScore {
		return Verdict{Reason: "LOW_SCORE"}
	}
	return Verdict{Pass: true}
}

func (s *SoftScorer) unavailable(mint, signal string, err error) {
	s.log.Warn().Str("mint", mint).Str("signal", signal).Err(err).Msg("signal unavailable, contributes 0")
}
