package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSConfig configures WebSocket source behavior.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff.
	MaxReconnectDelay time.Duration
	// ReadTimeout is the per-message read deadline.
	ReadTimeout time.Duration
	// WriteTimeout is the per-message write deadline.
	WriteTimeout time.Duration
	// Subscribe is the subscription payload sent after each (re)connect.
	// Nil means the feed pushes without a subscription handshake.
	Subscribe any
}

// DefaultWSConfig returns default WebSocket source configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSSource streams RawTokenRecords from a push WebSocket feed (Pump.fun
// style: one JSON object per message). It reconnects with exponential
// backoff and replays the subscription payload after each reconnect.
type WSSource struct {
	endpoint string
	config   WSConfig
	log      zerolog.Logger
	records  chan RawTokenRecord
}

// NewWSSource creates a WebSocket discovery source. Run must be called to
// start it.
func NewWSSource(endpoint string, config *WSConfig, log zerolog.Logger) *WSSource {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	return &WSSource{
		endpoint: endpoint,
		config:   cfg,
		log:      log.With().Str("component", "discovery_ws").Logger(),
		records:  make(chan RawTokenRecord, 256),
	}
}

// Records returns the channel of discovered records. Closed when Run returns.
func (s *WSSource) Records() <-chan RawTokenRecord {
	return s.records
}

// Compile-time interface check.
var _ Source = (*WSSource)(nil)

// Run connects and pumps records until ctx is done. Connection errors
// trigger reconnect with exponential backoff; the backoff resets after a
// successful read.
func (s *WSSource) Run(ctx context.Context) error {
	defer close(s.records)

	delay := s.config.ReconnectDelay
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := s.connect(ctx)
		if err != nil {
			s.log.Warn().Err(err).Dur("retry_in", delay).Msg("connect failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = nextDelay(delay, s.config.MaxReconnectDelay)
			continue
		}

		s.log.Info().Str("endpoint", s.endpoint).Msg("connected")

		// Unblock the pending read when ctx is cancelled.
		watchDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-watchDone:
			}
		}()

		err = s.pump(ctx, conn)
		close(watchDone)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn().Err(err).Dur("retry_in", delay).Msg("connection lost")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = nextDelay(delay, s.config.MaxReconnectDelay)
	}
}

// connect dials the endpoint and replays the subscription payload.
func (s *WSSource) connect(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	if s.config.Subscribe != nil {
		conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := conn.WriteJSON(s.config.Subscribe); err != nil {
			conn.Close()
			return nil, fmt.Errorf("write subscribe: %w", err)
		}
	}
	return conn, nil
}

// pump reads messages until the connection breaks or ctx is done.
func (s *WSSource) pump(ctx context.Context, conn *websocket.Conn) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var rec RawTokenRecord
		if err := json.Unmarshal(message, &rec); err != nil {
			s.log.Debug().Err(err).Msg("skip unparseable message")
			continue
		}
		if rec.Mint == "" {
			continue
		}

		select {
		case s.records <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func nextDelay(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
