package serial

import (
	"context"
	"errors"
	"io"
)

// Feeder is the subset of parser.Parser this package depends on, kept
// narrow so serial has no import on the parser package.
type Feeder interface {
	Feed(chunk []byte)
}

// ReadLoop blocks, repeatedly reading from port and handing each chunk
// to feeder, until ctx is cancelled or the port returns a permanent
// error. It is meant to run in its own goroutine, the "parallel receive
// stream" that keeps the EventBus fed independently of whatever the
// Controller's send side is doing.
func ReadLoop(ctx context.Context, port Port, feeder Feeder) error {
	buf := make([]byte, 4096)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := port.Read(buf)
		if n > 0 {
			feeder.Feed(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				continue // read timeout on the underlying port, not a real EOF
			}
			return err
		}
	}
}
