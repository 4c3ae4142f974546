// Package engine implements the protocol controller: the state machine
// that arbitrates the half-duplex link and drives the Transmitter and
// EventBus through a session's Idle/Arbitration and Active phases.
package engine

// Observer receives lifecycle notifications from a running Controller.
// It replaces the bare GUI_Sent/GUI_Received/GUI_ReceivedBad/GUI_Lost
// callbacks with an injected interface — the Controller
// never assumes a GUI exists, so a no-op or metrics-only Observer is
// just as valid as one that drives a terminal or log line.
type Observer interface {
	// Sent is called after a data frame (new or resent) is written.
	Sent()

	// Received is called when a structurally valid, CRC-good data frame
	// arrives.
	Received()

	// ReceivedBad is called when a data frame fails its CRC check.
	ReceivedBad()

	// Lost is called when the peer NAKed the last frame or its reply
	// timed out, and the last frame is about to be resent.
	Lost()

	// Fatal is called once, immediately before Run returns, with the
	// exit code the session is concluding with (0 graceful, 1 aborted,
	// 2 fatal-timeout).
	Fatal(code int)
}

// NopObserver implements Observer with no-op methods. Embed it to pick
// up new Observer methods without breaking existing callers.
type NopObserver struct{}

func (NopObserver) Sent()        {}
func (NopObserver) Received()    {}
func (NopObserver) ReceivedBad() {}
func (NopObserver) Lost()        {}
func (NopObserver) Fatal(int)    {}
