package engine

import (
	"log/slog"

	"github.com/rs/xid"
)

// LoggingObserver is an Observer that writes one structured log line per
// lifecycle event, tagged with a session ID so interleaved log output
// from several concurrent Controllers can be told apart.
type LoggingObserver struct {
	log       *slog.Logger
	sessionID xid.ID
}

// NewLoggingObserver mints a fresh session ID and binds it into every
// line this observer emits.
func NewLoggingObserver(log *slog.Logger) *LoggingObserver {
	id := xid.New()
	return &LoggingObserver{
		log:       log.With(slog.String("session", id.String())),
		sessionID: id,
	}
}

// SessionID returns the correlation ID this observer was minted with.
func (l *LoggingObserver) SessionID() string { return l.sessionID.String() }

func (l *LoggingObserver) Sent()        { l.log.Debug("frame sent") }
func (l *LoggingObserver) Received()    { l.log.Debug("frame received") }
func (l *LoggingObserver) ReceivedBad() { l.log.Warn("frame failed CRC check") }
func (l *LoggingObserver) Lost()        { l.log.Warn("frame lost (NAK or reply timeout), resending") }

func (l *LoggingObserver) Fatal(code int) {
	switch code {
	case ExitGraceful:
		l.log.Info("session ended gracefully")
	case ExitAborted:
		l.log.Warn("session aborted waiting on initial reply")
	case ExitFatal:
		l.log.Error("session ended fatally, reply-timeout ceiling reached")
	default:
		l.log.Error("session ended with unrecognized exit code", slog.Int("code", code))
	}
}

// MultiObserver fans lifecycle events out to every Observer in obs, so a
// Controller can be wired to both Metrics and a LoggingObserver (or any
// other combination) without either needing to know about the other.
type MultiObserver []Observer

func (m MultiObserver) Sent() {
	for _, o := range m {
		o.Sent()
	}
}

func (m MultiObserver) Received() {
	for _, o := range m {
		o.Received()
	}
}

func (m MultiObserver) ReceivedBad() {
	for _, o := range m {
		o.ReceivedBad()
	}
}

func (m MultiObserver) Lost() {
	for _, o := range m {
		o.Lost()
	}
}

func (m MultiObserver) Fatal(code int) {
	for _, o := range m {
		o.Fatal(code)
	}
}
