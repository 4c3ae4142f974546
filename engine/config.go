package engine

import (
	"time"

	"golang.org/x/time/rate"
)

// Config holds the Controller's tunables as runtime values instead of
// compile-time constants, so one binary can serve several links with
// different timing budgets.
type Config struct {
	// ReplyTimeout bounds how long each Active iteration waits for an
	// ACK/NAK. The same duration bounds the wait for an answer to an
	// Idle-phase ENQ, and twice it caps the ENQ-collision back-off window.
	ReplyTimeout time.Duration

	// DataInspectionWindow bounds the short second wait used to check
	// whether a reply frame also carried data. It must stay well under
	// ReplyTimeout since it runs inside the same round trip.
	DataInspectionWindow time.Duration

	// MaxReplyTimeouts is the number of consecutive unanswered reply
	// waits in the Active phase before the session gives up fatally.
	MaxReplyTimeouts int

	// IdleENQRate paces how often the Idle phase is allowed to emit an
	// unanswered initiating ENQ. Idle-phase retries are intentionally
	// unbounded in count, so this limiter is what keeps an unattended
	// link from flooding the wire while waiting for a peer to appear.
	IdleENQRate rate.Limit

	// IdleENQBurst is the limiter's burst allowance.
	IdleENQBurst int
}

// DefaultConfig returns conservative defaults: a two-second reply
// timeout, a five-attempt fatal ceiling, and ENQ pacing of 2/s.
func DefaultConfig() Config {
	return Config{
		ReplyTimeout:         2 * time.Second,
		DataInspectionWindow: 10 * time.Millisecond,
		MaxReplyTimeouts:     5,
		IdleENQRate:          2,
		IdleENQBurst:         1,
	}
}
