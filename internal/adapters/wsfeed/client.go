package wsfeed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"liveTradeFeed/internal/domain"
	"liveTradeFeed/internal/ports"
)

// Client implements the ports.FeedClient interface over a gorilla websocket.
type Client struct {
	url                  string
	dialer               *websocket.Dialer
	logger               ports.Logger
	reconnectDelay       time.Duration
	maxReconnectAttempts int
	stableAfter          time.Duration
}

// Config holds configuration specific to the feed client adapter.
type Config struct {
	URL                  string
	Logger               ports.Logger
	HandshakeTimeout     time.Duration
	ReconnectDelay       time.Duration // Base delay, doubled per failed attempt
	MaxReconnectAttempts int           // Consecutive failures before giving up
	StableAfter          time.Duration // Uptime after which a silent connection counts as healthy
}

// New creates a new feed client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for feed client", ports.ErrConfigurationError)
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: feed URL is required", ports.ErrConfigurationError)
	}

	reconnectDelay := cfg.ReconnectDelay
	if reconnectDelay <= 0 {
		reconnectDelay = 1 * time.Second
	}
	maxAttempts := cfg.MaxReconnectAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	stableAfter := cfg.StableAfter
	if stableAfter <= 0 {
		stableAfter = 30 * time.Second
	}
	handshake := cfg.HandshakeTimeout
	if handshake <= 0 {
		handshake = 10 * time.Second
	}

	return &Client{
		url:                  cfg.URL,
		dialer:               &websocket.Dialer{HandshakeTimeout: handshake},
		logger:               cfg.Logger,
		reconnectDelay:       reconnectDelay,
		maxReconnectAttempts: maxAttempts,
		stableAfter:          stableAfter,
	}, nil
}

// Stream connects to the feed and delivers decoded events to handler until ctx is cancelled,
// stopCh is signalled, or the reconnect budget is exhausted. Failed dials and dropped
// connections both wait out the backoff before redialling. Every (re)connect sends a sync
// request so the backend replays the open trades snapshot.
// handler and errHandler are never called concurrently.
func (c *Client) Stream(ctx context.Context, handler func(domain.Event), errHandler func(error)) (doneCh chan struct{}, stopCh chan struct{}, err error) {
	op := "Stream"
	if handler == nil {
		return nil, nil, fmt.Errorf("%w: event handler is required", ports.ErrInvalidRequest)
	}
	if errHandler == nil {
		errHandler = func(error) {}
	}

	wsCtx, cancelWs := context.WithCancel(ctx)
	doneCh = make(chan struct{})
	stopCh = make(chan struct{})

	// Reconnection loop
	go func() {
		defer cancelWs()

		attempt := 0
		for {
			select {
			case <-wsCtx.Done():
				c.logger.Info(wsCtx, op+": Context cancelled, stopping connection attempts.", map[string]interface{}{"url": c.url})
				return
			default:
			}

			c.logger.Info(wsCtx, op+": Attempting WebSocket connection...", map[string]interface{}{"url": c.url, "attempt": attempt + 1})
			received := &atomic.Bool{}
			conn, innerDoneCh, connectErr := c.connect(wsCtx, handler, errHandler, received)
			cause := connectErr
			if connectErr != nil {
				if errors.Is(wsCtx.Err(), context.Canceled) {
					return
				}
				c.logger.Warn(wsCtx, op+": Connection attempt failed", map[string]interface{}{"url": c.url, "attempt": attempt + 1, "error": connectErr.Error()})
			} else {
				c.logger.Info(wsCtx, op+": WebSocket connection established.", map[string]interface{}{"url": c.url})
				connectedAt := time.Now()

				select {
				case <-innerDoneCh:
					_ = conn.Close()
					if wsCtx.Err() != nil {
						return
					}
					// Only a connection that proved healthy refills the retry budget.
					if received.Load() || time.Since(connectedAt) >= c.stableAfter {
						attempt = 0
					}
					cause = fmt.Errorf("%w: connection dropped", ports.ErrFeedClosed)
					c.logger.Warn(wsCtx, op+": WebSocket connection closed unexpectedly. Reconnecting...", map[string]interface{}{"url": c.url})
				case <-wsCtx.Done():
					c.logger.Info(wsCtx, op+": Context cancelled, stopping WebSocket.", map[string]interface{}{"url": c.url})
					closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
					_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
					_ = conn.Close()
					<-innerDoneCh
					return
				}
			}

			attempt++
			if attempt >= c.maxReconnectAttempts {
				c.logger.Error(wsCtx, cause, op+": Max reconnection attempts exceeded, giving up.", map[string]interface{}{"url": c.url, "maxAttempts": c.maxReconnectAttempts})
				errHandler(fmt.Errorf("%w: giving up after %d attempts: %v", ports.ErrConnectionFailed, attempt, cause))
				return
			}

			delay := c.backoff(attempt)
			c.logger.Info(wsCtx, op+": Retrying connection...", map[string]interface{}{"url": c.url, "attempt": attempt + 1, "delay": delay.String()})
			select {
			case <-time.After(delay):
			case <-wsCtx.Done():
				c.logger.Info(wsCtx, op+": Context cancelled during backoff.", map[string]interface{}{"url": c.url})
				return
			}
		}
	}()

	// Link the external stopCh to the internal context
	go func() {
		select {
		case <-stopCh:
			c.logger.Info(ctx, op+": Received external stop signal, cancelling WebSocket context.", map[string]interface{}{"url": c.url})
			cancelWs()
		case <-wsCtx.Done():
		}
	}()

	go func() {
		<-wsCtx.Done()
		c.logger.Debug(ctx, op+": WebSocket context done, closing external done channel.", map[string]interface{}{"url": c.url})
		close(doneCh)
	}()

	return doneCh, stopCh, nil
}

// connect dials the feed, sends the sync request and starts the read loop.
// The returned channel is closed when the read loop exits.
// received is set once the first frame arrives.
func (c *Client) connect(ctx context.Context, handler func(domain.Event), errHandler func(error), received *atomic.Bool) (*websocket.Conn, chan struct{}, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: dial %s: %v", ports.ErrConnectionFailed, c.url, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, EncodeSyncRequest()); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%w: send sync request: %v", ports.ErrConnectionFailed, err)
	}

	innerDone := make(chan struct{})
	go func() {
		defer close(innerDone)
		for {
			msgType, frame, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					errHandler(fmt.Errorf("%w: %v", ports.ErrFeedClosed, err))
				}
				return
			}
			received.Store(true)
			if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
				continue
			}
			event, err := Decode(frame)
			if err != nil {
				c.logger.Debug(ctx, "Stream: dropping undecodable frame", map[string]interface{}{"error": err.Error()})
				errHandler(err)
				continue
			}
			handler(event)
		}
	}()
	return conn, innerDone, nil
}

// backoff returns the exponential delay for the given failed attempt, plus 10% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > 6 {
		shift = 6
	}
	delay := c.reconnectDelay * time.Duration(1<<uint(shift))
	return delay + delay/10
}
