package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"arqlink/protocol"
)

type recordingObserver struct {
	sent, received, bad, lost int
	exitCode                  int
	fataled                   bool
}

func (o *recordingObserver) Sent()        { o.sent++ }
func (o *recordingObserver) Received()    { o.received++ }
func (o *recordingObserver) ReceivedBad() { o.bad++ }
func (o *recordingObserver) Lost()        { o.lost++ }
func (o *recordingObserver) Fatal(code int) {
	o.exitCode = code
	o.fataled = true
}

func fastConfig() Config {
	return Config{
		ReplyTimeout:         40 * time.Millisecond,
		DataInspectionWindow: 5 * time.Millisecond,
		MaxReplyTimeouts:     3,
		IdleENQRate:          1000,
		IdleENQBurst:         5,
	}
}

func TestControllerFatalAfterMaxTimeouts(t *testing.T) {
	bus := protocol.NewEventBus()
	queue := protocol.NewQueue()
	queue.Push([]byte{0x01, 0x02})

	// A writer that always "succeeds" but whose peer never replies:
	// every reply wait in Active should time out. Exercise the Active
	// phase directly as the side that already holds the link
	// (sendClear = true), the same state initiate() hands off in after
	// winning arbitration.
	w := writerFunc(func(buf []byte) bool { return true })
	tx := protocol.NewTransmitter(queue, w)
	obs := &recordingObserver{}

	c := New(bus, tx, queue, fastConfig(), obs)
	code, done := c.runActive(context.Background(), true)

	require.True(t, done)
	require.Equal(t, ExitFatal, code)
	require.GreaterOrEqual(t, obs.lost, 1)
}

func TestControllerAbortsOnUnansweredFirstReply(t *testing.T) {
	bus := protocol.NewEventBus()
	queue := protocol.NewQueue()
	w := writerFunc(func(buf []byte) bool { return true })
	tx := protocol.NewTransmitter(queue, w)
	obs := &recordingObserver{}

	c := New(bus, tx, queue, fastConfig(), obs)

	// Responder path: a peer ENQ hands control to Active with
	// sendClear = false. If the peer then never replies at all, the
	// very first timeout must abort rather than retry.
	code, done := c.runActive(context.Background(), false)

	require.True(t, done)
	require.Equal(t, ExitAborted, code)
}

func TestControllerGracefulTeardown(t *testing.T) {
	bus := protocol.NewEventBus()
	queue := protocol.NewQueue() // nothing to send on either side
	w := writerFunc(func(buf []byte) bool { return true })
	tx := protocol.NewTransmitter(queue, w)
	obs := &recordingObserver{}

	c := New(bus, tx, queue, fastConfig(), obs)

	// Responder path: a peer ENQ hands control to Active with
	// sendClear = false, so this side waits on the peer's reply first.
	// Raising ACK and EOT ahead of Run lets the EventBus's persistent
	// flags satisfy both waits deterministically, no goroutine timing
	// required: peer ACKs the ENQ reply, then immediately EOTs since it
	// has nothing to send either.
	bus.Raise(protocol.SigENQ)
	bus.Raise(protocol.SigACK)
	bus.Raise(protocol.SigEOT)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	code := c.Run(ctx)

	require.Equal(t, ExitGraceful, code)
	require.True(t, obs.fataled)
	require.Equal(t, ExitGraceful, obs.exitCode)
}

func TestControllerContextCancellationEndsSession(t *testing.T) {
	bus := protocol.NewEventBus()
	queue := protocol.NewQueue()
	w := writerFunc(func(buf []byte) bool { return true })
	tx := protocol.NewTransmitter(queue, w)
	obs := &recordingObserver{}

	c := New(bus, tx, queue, fastConfig(), obs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code := c.Run(ctx)
	require.Equal(t, ExitGraceful, code)
}

type writerFunc func(buf []byte) bool

func (f writerFunc) WriteOut(buf []byte) bool { return f(buf) }
