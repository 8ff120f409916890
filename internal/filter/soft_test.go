package filter

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"solana-sniper/internal/domain"
)

type stubSignals struct {
	rugScore   int
	rugErr     error
	renounced  bool
	clusterBad bool
	clusterErr error
	socialOK   bool
	socialErr  error
	trend      int
	insider    bool
	insiderErr error
}

func (s *stubSignals) Score(context.Context, string) (int, error) { return s.rugScore, s.rugErr }
func (s *stubSignals) MintRenounced(context.Context, string) (bool, error) {
	return s.renounced, nil
}
func (s *stubSignals) Suspicious(context.Context, string, string) (bool, error) {
	return s.clusterBad, s.clusterErr
}
func (s *stubSignals) Check(context.Context, string) (bool, int, int, error) {
	return s.socialOK, 1200, 300, s.socialErr
}
func (s *stubSignals) Trend(context.Context, string) (int, error)   { return s.trend, nil }
func (s *stubSignals) Detect(context.Context, string) (bool, error) { return s.insider, s.insiderErr }

func newScorer(sig *stubSignals) *SoftScorer {
	return NewSoftScorer(testConfig(), sig, sig, sig, sig, sig, sig, zerolog.Nop())
}

func strongCandidate() *domain.Candidate {
	return &domain.Candidate{
		Mint:         "MintA",
		CreatedAt:    time.Now().Add(-time.Hour),
		LiquidityUSD: 12000, // >= 2x min
		Volume24hUSD: 40000, // >= 3x min
		Holders:      25,    // >= 2x min
	}
}

func TestSoftScorer_FullMarks(t *testing.T) {
	sig := &stubSignals{rugScore: 85, renounced: true, socialOK: true, trend: 1}
	s := newScorer(sig)

	c := strongCandidate()
	v := s.Evaluate(context.Background(), c)
	if !v.Pass {
		t.Fatalf("expected pass, got %s", v.Reason)
	}
	if c.ScoreTotal != 95 {
		t.Errorf("ScoreTotal = %d, want 95", c.ScoreTotal)
	}
	if c.RugScore != 85 || !c.SocialOK || c.Trend != 1 {
		t.Error("signal fields not filled on candidate")
	}
	if !c.MintAuthRenounced {
		t.Error("MintAuthRenounced not filled on candidate")
	}
	if c.TwitterFollowers != 1200 || c.DiscordMembers != 300 {
		t.Error("social counts not recorded")
	}
}

func TestSoftScorer_RejectsBelowMinimum(t *testing.T) {
	// Everything bad: risky rug score, coordinated cluster, insider, no
	// socials, weak market numbers.
	sig := &stubSignals{rugScore: 20, clusterBad: true, insider: true}
	s := newScorer(sig)

	c := &domain.Candidate{Mint: "MintA", LiquidityUSD: 5000, Volume24hUSD: 10000, Holders: 10}
	v := s.Evaluate(context.Background(), c)
	if v.Pass {
		t.Fatalf("expected reject, score %d", c.ScoreTotal)
	}
	if c.ScoreTotal != 0 {
		t.Errorf("ScoreTotal = %d, want 0", c.ScoreTotal)
	}
}

func TestSoftScorer_UnavailableSignalDegrades(t *testing.T) {
	// Rug endpoint down: its 15 points are forfeited but nothing rejects.
	sig := &stubSignals{rugScore: 85, rugErr: ErrCollaboratorUnavailable, socialOK: true}
	s := newScorer(sig)

	c := strongCandidate()
	v := s.Evaluate(context.Background(), c)
	if !v.Pass {
		t.Fatalf("collaborator failure must not reject, got %s", v.Reason)
	}
	if c.ScoreTotal != 80 {
		t.Errorf("ScoreTotal = %d, want 80 (95 minus rug points)", c.ScoreTotal)
	}
	if c.RugScore != 0 {
		t.Errorf("RugScore = %d, want untouched 0", c.RugScore)
	}
}

func TestSoftScorer_NilCollaborators(t *testing.T) {
	s := NewSoftScorer(testConfig(), nil, nil, nil, nil, nil, nil, zerolog.Nop())

	c := strongCandidate()
	v := s.Evaluate(context.Background(), c)
	// Market numbers alone: 15+20+10 = 45, under the 50 minimum.
	if v.Pass {
		t.Fatalf("expected reject at score %d", c.ScoreTotal)
	}
	if c.ScoreTotal != 45 {
		t.Errorf("ScoreTotal = %d, want 45", c.ScoreTotal)
	}
}
