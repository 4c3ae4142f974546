package protocol

// Transmitter constructs the six kinds of outbound frames, computes
// their CRC, and writes them synchronously to the transport. It
// exclusively owns the two frame buffers and the alternating SOT bit;
// the Controller owns everything else. Grounded directly on
// original_source/Output.cpp (SendENQ, SendEOT, SendNext, Resend,
// WriteOut), restructured as methods on a value instead of free
// functions over process-global buffers.
type Transmitter struct {
	queue  *Queue
	writer Writer
	crc    CRCFunc

	sot    byte // next SOT to stamp on a fresh data frame: DC1 or DC2
	cached []byte
}

// NewTransmitter wires a Transmitter to its outbound queue and
// transport. The alternating SOT starts at DC1, matching the source's
// `SOTval = 1`.
func NewTransmitter(queue *Queue, writer Writer) *Transmitter {
	return &Transmitter{
		queue:  queue,
		writer: writer,
		crc:    DefaultCRC,
		sot:    DC1,
	}
}

// WithCRC overrides the CRC function, e.g. for tests that need a
// deterministic or deliberately-broken checksum.
func (t *Transmitter) WithCRC(fn CRCFunc) *Transmitter {
	t.crc = fn
	return t
}

// SendENQ emits [SYN, ACK|0, ENQ]. The ENQ piggyback carries ACK when
// ack is true, and the null byte otherwise — distinct from NAK, since
// an initiating ENQ carries no acknowledgement at all.
func (t *Transmitter) SendENQ(ack bool) bool {
	frame := [ControlFrameSize]byte{SYN, 0, ENQ}
	if ack {
		frame[ctrlOffPiggyback] = ACK
	}
	return t.writer.WriteOut(frame[:])
}

// SendEOT emits [SYN, ACK|NAK, EOT].
func (t *Transmitter) SendEOT(ack bool) bool {
	frame := [ControlFrameSize]byte{SYN, piggyback(ack), EOT}
	return t.writer.WriteOut(frame[:])
}

// SendNext drains up to PayloadSize bytes from the outbound queue into a
// new data frame, stamps the alternating SOT, computes the CRC, caches
// the frame verbatim, and writes it. Returns false with no side effect
// if the queue was empty to begin with; if the queue drains to empty
// mid-frame (racing the producer), the remainder is zero-padded rather
// than aborting the frame.
func (t *Transmitter) SendNext(ack bool) bool {
	if t.queue.Empty() {
		return false
	}

	frame := make([]byte, DataFrameSize)
	frame[offSyn] = SYN
	frame[offPiggyback] = piggyback(ack)
	frame[offSOT] = t.sot
	t.advanceSOT()

	for i := offPayload; i < offCRCStart; i++ {
		b, ok := t.queue.PopByte()
		if !ok {
			break // zero-padding for the rest is already in place (make() zeros)
		}
		frame[i] = b
	}

	t.stampCRC(frame)
	t.cached = frame

	return t.writer.WriteOut(frame)
}

// Resend re-emits the cached data frame, rewriting only the piggyback
// byte. The SOT is never toggled on resend — back-to-back
// retransmissions of the same payload are a defining invariant of the
// protocol. Unlike the original source, the CRC is recomputed after the
// piggyback rewrite: the CRC covers the piggyback byte, so leaving it
// stale would make every resent frame fail the peer's CRC check.
func (t *Transmitter) Resend(ack bool) bool {
	if t.cached == nil {
		return false
	}
	t.cached[offPiggyback] = piggyback(ack)
	t.stampCRC(t.cached)
	return t.writer.WriteOut(t.cached)
}

func (t *Transmitter) advanceSOT() {
	if t.sot == DC1 {
		t.sot = DC2
	} else {
		t.sot = DC1
	}
}

func (t *Transmitter) stampCRC(frame []byte) {
	crc := t.crc(frame[crcSpanStart:crcSpanEndExc])
	frame[offCRCStart] = byte(crc >> 8)
	frame[offCRCStart+1] = byte(crc)
}

func piggyback(ack bool) byte {
	if ack {
		return ACK
	}
	return NAK
}
