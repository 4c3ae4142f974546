package parser

import (
	"testing"
	"time"

	"arqlink/protocol"
)

func buildDataFrame(sot byte, piggyback byte, payload []byte) []byte {
	frame := make([]byte, protocol.DataFrameSize)
	frame[0] = protocol.SYN
	frame[1] = piggyback
	frame[2] = sot
	copy(frame[3:], payload)
	crc := protocol.DefaultCRC(frame[1:1023])
	frame[1023] = byte(crc >> 8)
	frame[1024] = byte(crc)
	return frame
}

func TestParserDecodesControlFrame(t *testing.T) {
	bus := protocol.NewEventBus()
	p := NewParser(bus)

	p.Feed([]byte{protocol.SYN, protocol.ACK, protocol.ENQ})

	if !bus.Wait(50*time.Millisecond, protocol.SigENQ) {
		t.Fatal("expected ENQ signal")
	}
	if !bus.IsSet(protocol.SigACK) {
		t.Error("expected ACK signal raised alongside ENQ piggyback")
	}
}

func TestParserDecodesGoodDataFrame(t *testing.T) {
	bus := protocol.NewEventBus()
	p := NewParser(bus)

	var got []byte
	p.OnPayload = func(payload []byte) { got = payload }

	frame := buildDataFrame(protocol.DC1, protocol.ACK, []byte("payload"))
	p.Feed(frame)

	if !bus.Wait(50*time.Millisecond, protocol.SigDataReceived) {
		t.Fatal("expected DATA_RECEIVED signal")
	}
	if got == nil || string(got[:7]) != "payload" {
		t.Fatalf("unexpected payload: %q", got)
	}
}

func TestParserDetectsBadCRC(t *testing.T) {
	bus := protocol.NewEventBus()
	p := NewParser(bus)

	frame := buildDataFrame(protocol.DC1, protocol.ACK, []byte("payload"))
	frame[1023] ^= 0xFF // corrupt the CRC

	p.Feed(frame)

	if !bus.Wait(50*time.Millisecond, protocol.SigBadDataReceived) {
		t.Fatal("expected BAD_DATA_RECEIVED signal")
	}
	if bus.IsSet(protocol.SigDataReceived) {
		t.Error("DATA_RECEIVED must not be raised for a corrupt frame")
	}
}

func TestParserResyncsPastGarbageBytes(t *testing.T) {
	bus := protocol.NewEventBus()
	p := NewParser(bus)

	frame := buildDataFrame(protocol.DC2, protocol.NAK, []byte("x"))
	noise := append([]byte{0xFF, 0xFE, protocol.SYN, 0x00}, frame...)

	p.Feed(noise)

	if !bus.Wait(50*time.Millisecond, protocol.SigDataReceived) {
		t.Fatal("expected the parser to resync past leading garbage and decode the frame")
	}
}

func TestParserFeedAcrossMultipleChunks(t *testing.T) {
	bus := protocol.NewEventBus()
	p := NewParser(bus)

	frame := buildDataFrame(protocol.DC1, protocol.ACK, []byte("split"))

	p.Feed(frame[:500])
	if bus.IsSet(protocol.SigDataReceived) {
		t.Fatal("must not decode a frame before all its bytes have arrived")
	}

	p.Feed(frame[500:])
	if !bus.Wait(50*time.Millisecond, protocol.SigDataReceived) {
		t.Fatal("expected DATA_RECEIVED once the remaining bytes arrive")
	}
}

func TestParserFeedCompleteUsesSliceInputBuffer(t *testing.T) {
	bus := protocol.NewEventBus()
	p := NewParser(bus)

	var got []byte
	p.OnPayload = func(payload []byte) { got = payload }

	frame := buildDataFrame(protocol.DC1, protocol.ACK, []byte("captured"))
	p.FeedComplete(frame)

	if !bus.Wait(50*time.Millisecond, protocol.SigDataReceived) {
		t.Fatal("expected DATA_RECEIVED when decoding a complete buffer in one call")
	}
	if got == nil || string(got[:8]) != "captured" {
		t.Fatalf("unexpected payload: %q", got)
	}
}
