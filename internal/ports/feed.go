package ports

import (
	"context"

	"liveTradeFeed/internal/domain"
)

// FeedClient defines the interface for the real-time trade feed the dashboard listens to.
// Connection lifecycle (connect, reconnect on drop, disconnect) belongs to the implementation.
type FeedClient interface {
	// Stream connects to the feed and delivers decoded events to handler until stopped.
	// A sync request for the current open trades is sent on every (re)connect.
	// Frames that cannot be decoded are reported through errHandler and never reach handler.
	// doneCh is closed when the stream has stopped; sending on (or closing) stopCh stops it.
	Stream(ctx context.Context, handler func(event domain.Event), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error)
}
