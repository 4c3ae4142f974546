package engine

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"arqlink/protocol"
)

// Exit codes a Controller's Run returns.
const (
	ExitGraceful = 0 // both sides exchanged EOT; teardown complete
	ExitAborted  = 1 // a timeout or NAK arrived while waiting on the very first reply
	ExitFatal    = 2 // MaxReplyTimeouts consecutive reply waits went unanswered
)

// Controller runs one session of the link-arbitration state machine: an
// Idle/Arbitration phase that resolves who gets to transmit, and an
// Active phase that drives the send/wait/check loop until both ends
// have exchanged EOT. Both phases wait on an EventBus owned alongside
// the Controller's own Transmitter and outbound Queue.
type Controller struct {
	bus *protocol.EventBus
	tx  *protocol.Transmitter
	out *protocol.Queue

	cfg Config
	obs Observer

	limiter *rate.Limiter

	// teardownReady is set when the peer's last data slot held nothing
	// but an EOT, so the next send turn closes the session instead of
	// re-checking for output.
	teardownReady bool
}

// New wires a Controller to its EventBus, Transmitter, and outbound
// queue. obs may be nil, in which case lifecycle notifications are
// discarded.
func New(bus *protocol.EventBus, tx *protocol.Transmitter, out *protocol.Queue, cfg Config, obs Observer) *Controller {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Controller{
		bus:     bus,
		tx:      tx,
		out:     out,
		cfg:     cfg,
		obs:     obs,
		limiter: rate.NewLimiter(cfg.IdleENQRate, cfg.IdleENQBurst),
	}
}

// Run drives the session to completion: Idle/Arbitration phase first,
// then, once the link is won, the Active exchange. It returns one of
// ExitGraceful, ExitAborted, or ExitFatal, and also reports that code to
// the Observer before returning. ctx cancellation ends the session
// between waits with ExitGraceful, checked at the top of both phases'
// loops.
func (c *Controller) Run(ctx context.Context) int {
	code := c.runIdle(ctx)
	c.obs.Fatal(code)
	return code
}

// runIdle is the Idle/Arbitration phase: wait for either a peer-sent
// ENQ, our own output becoming available, or shutdown. An incoming ENQ
// immediately hands control to Active as the responder. Output
// available triggers our own initiating ENQ, which can collide with one
// arriving from the peer at the same moment — resolved with a random
// back-off in initiate.
func (c *Controller) runIdle(ctx context.Context) int {
	for {
		if ctx.Err() != nil {
			return ExitGraceful
		}

		if !c.out.Empty() {
			c.bus.Raise(protocol.SigOutputAvailable)
		}

		signal, ok := c.waitIdleSignal(ctx)
		if !ok {
			if ctx.Err() != nil {
				return ExitGraceful
			}
			continue
		}

		switch signal {
		case protocol.SigENQ:
			c.tx.SendENQ(true)
			if code, done := c.runActive(ctx, false); done {
				return code
			}

		case protocol.SigOutputAvailable:
			if code, done := c.initiate(ctx); done {
				return code
			}

		case protocol.SigEndProgram:
			return ExitGraceful
		}
	}
}

// waitIdleSignal waits for ENQ, OUTPUT_AVAILABLE, or END_PROGRAM with no
// timeout, pacing repeated wake-ups on OUTPUT_AVAILABLE through the
// configured limiter so a peer-less link with pending output doesn't
// spin ENQs as fast as the scheduler allows.
func (c *Controller) waitIdleSignal(ctx context.Context) (string, bool) {
	name, ok := c.bus.WaitMany(0, protocol.SigENQ, protocol.SigOutputAvailable, protocol.SigEndProgram)
	if !ok {
		return "", false
	}
	if name == protocol.SigOutputAvailable {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", false
		}
	}
	return name, true
}

// initiate sends our own ENQ and resolves the possible collision with a
// peer ENQ arriving at (almost) the same moment.
func (c *Controller) initiate(ctx context.Context) (code int, done bool) {
	c.tx.SendENQ(false)

	if _, ok := c.bus.WaitMany(c.cfg.ReplyTimeout, protocol.SigENQ); !ok {
		return 0, false // no reply at all; back to Idle
	}

	if _, ok := c.bus.WaitMany(c.cfg.DataInspectionWindow, protocol.SigACK); ok {
		return c.runActive(ctx, true)
	}

	// ENQ collision: peer's ENQ crossed ours with no ACK. Back off for a
	// random interval up to twice the reply timeout, then retry Idle if
	// nothing resolves it first.
	backoff := time.Duration(rand.Int63n(int64(2 * c.cfg.ReplyTimeout)))
	if _, ok := c.bus.WaitMany(backoff, protocol.SigENQ); ok {
		c.bus.Raise(protocol.SigENQ)
	}
	return 0, false
}

// runActive drives the Active exchange loop. sendClear starts true when
// this Controller won the Idle-phase handshake as initiator, and false
// when it is the responder to an inbound ENQ (the peer transmits first);
// it tracks, across iterations, whether a full reply round has completed
// and a new send is due.
func (c *Controller) runActive(ctx context.Context, sendClear bool) (code int, done bool) {
	resend := false
	reAck := true
	timeouts := 0
	c.teardownReady = false

	for {
		if ctx.Err() != nil {
			return ExitGraceful, true
		}

		hasOutput := !c.out.Empty()

		switch {
		case sendClear && (hasOutput || resend):
			if resend {
				c.tx.Resend(reAck)
			} else {
				c.tx.SendNext(reAck)
			}
			c.obs.Sent()

		case sendClear:
			if c.teardownReady {
				return ExitGraceful, true
			}
			c.tx.SendEOT(reAck)
		}

		signal, ok := c.bus.WaitMany(c.cfg.ReplyTimeout, protocol.SigACK, protocol.SigNAK)
		switch {
		case ok && signal == protocol.SigACK:
			resend = false
			timeouts = 0

		case !ok:
			timeouts++
			if timeouts == c.cfg.MaxReplyTimeouts {
				return ExitFatal, true
			}
			if !sendClear {
				return ExitAborted, true
			}
			resend = true
			c.obs.Lost()

		case ok && signal == protocol.SigNAK:
			if !sendClear {
				// A NAK riding the very first reply is treated the same
				// as a timeout waiting for initial data, not as a
				// resend trigger — preserved rather than "fixed," since
				// changing it would alter which first exchanges abort.
				return ExitAborted, true
			}
			resend = true
			timeouts = 0
			c.obs.Lost()
		}

		// An inspection-window timeout is treated the same as an
		// explicit EOT: either way nothing but a teardown notice showed
		// up in the reply, so the next send turn should close out.
		dataSignal, dataOK := c.bus.WaitMany(c.cfg.DataInspectionWindow,
			protocol.SigDataReceived, protocol.SigBadDataReceived, protocol.SigEOT)
		switch {
		case dataOK && dataSignal == protocol.SigDataReceived:
			reAck = true
			c.teardownReady = false
			c.obs.Received()

		case dataOK && dataSignal == protocol.SigBadDataReceived:
			reAck = false
			c.teardownReady = false
			c.obs.ReceivedBad()

		default: // SigEOT, or nothing arrived within the window
			reAck = true
			c.teardownReady = true
		}

		sendClear = true
	}
}
