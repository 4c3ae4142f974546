// Package parser provides a reference inbound frame parser: it scans a
// byte stream for SYN-delimited control/data frames, verifies the CRC,
// and raises the matching protocol.EventBus signal.
//
// The frame parser is an external collaborator to the engine rather
// than part of its core state machine, so this package is explicitly a
// reference/integration component: it exists so two Controllers can be
// wired back to back over a real or in-memory transport for end-to-end
// exercise, and so a real serial link has something decoding bytes on
// the receive side at all.
package parser

import (
	"arqlink/protocol"
)

// Parser decodes frames out of an accumulating byte stream and raises
// bus signals for the Controller to react to.
type Parser struct {
	bus  *protocol.EventBus
	fifo *protocol.FifoBuffer
	crc  protocol.CRCFunc

	// OnPayload, if set, receives the 1020-byte payload span of every
	// structurally valid, CRC-good data frame (zero-padding included —
	// the wire layer cannot distinguish padding from payload; that is
	// the application layer's concern).
	OnPayload func(payload []byte)
}

// NewParser constructs a parser over a fresh accumulation buffer, large
// enough to hold several data frames of slack during bursty reads.
func NewParser(bus *protocol.EventBus) *Parser {
	return &Parser{
		bus:  bus,
		fifo: protocol.NewFifoBuffer(4 * protocol.DataFrameSize),
		crc:  protocol.DefaultCRC,
	}
}

// WithCRC overrides the CRC verification function (tests only).
func (p *Parser) WithCRC(fn protocol.CRCFunc) *Parser {
	p.crc = fn
	return p
}

// Feed appends newly-read transport bytes and decodes as many complete
// frames as are available. It is meant to be called from the goroutine
// reading the transport (the "parallel receive stream" of the
// specification).
func (p *Parser) Feed(chunk []byte) {
	p.fifo.Write(chunk)
	p.scan(p.fifo)
}

// FeedComplete decodes every frame out of a single already-assembled
// byte slice, scanning it through a SliceInputBuffer instead of the
// streaming FifoBuffer. It suits callers that already hold a complete
// buffer — a captured session read back from disk, a fixture in a test
// — rather than bytes arriving incrementally off a transport.
func (p *Parser) FeedComplete(data []byte) {
	p.scan(protocol.NewSliceInputBuffer(data))
}

// scan decodes as many complete frames as buf currently holds, against
// either the streaming FifoBuffer or a one-shot InputBuffer.
func (p *Parser) scan(buf protocol.InputBuffer) {
	data := buf.Data()

	for len(data) > 0 {
		if data[0] != protocol.SYN {
			// Garbage byte before a frame boundary: drop and resync.
			data = data[1:]
			continue
		}
		if len(data) < 3 {
			break // need the indicator byte to know the frame shape
		}

		switch data[2] {
		case protocol.ENQ, protocol.EOT:
			if len(data) < protocol.ControlFrameSize {
				goto drain
			}
			p.dispatchControl(data[:protocol.ControlFrameSize])
			data = data[protocol.ControlFrameSize:]

		case protocol.DC1, protocol.DC2:
			if len(data) < protocol.DataFrameSize {
				goto drain
			}
			p.dispatchData(data[:protocol.DataFrameSize])
			data = data[protocol.DataFrameSize:]

		default:
			// SYN followed by neither a known control code nor a valid
			// SOT byte: not a real frame boundary, drop just the SYN
			// and keep scanning.
			data = data[1:]
		}
	}

drain:
	consumed := buf.Available() - len(data)
	if consumed > 0 {
		buf.Pop(consumed)
	}
}

func (p *Parser) dispatchControl(frame []byte) {
	code := frame[2]
	piggyback := frame[1]

	if code == protocol.ENQ {
		p.bus.Raise(protocol.SigENQ)
	} else {
		p.bus.Raise(protocol.SigEOT)
	}

	switch piggyback {
	case protocol.ACK:
		p.bus.Raise(protocol.SigACK)
	case protocol.NAK:
		p.bus.Raise(protocol.SigNAK)
	}
}

func (p *Parser) dispatchData(frame []byte) {
	switch frame[1] {
	case protocol.ACK:
		p.bus.Raise(protocol.SigACK)
	case protocol.NAK:
		p.bus.Raise(protocol.SigNAK)
	}

	want := p.crc(frame[1:1023])
	got := uint16(frame[1023])<<8 | uint16(frame[1024])

	if want != got {
		p.bus.Raise(protocol.SigBadDataReceived)
		return
	}

	if p.OnPayload != nil {
		payload := make([]byte, protocol.PayloadSize)
		copy(payload, frame[3:1023])
		p.OnPayload(payload)
	}
	p.bus.Raise(protocol.SigDataReceived)
}
