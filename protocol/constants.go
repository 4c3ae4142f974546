package protocol

// Wire byte constants. Fixed ASCII control codes per the protocol's
// framing table; the CRC function and transport write are injected.
const (
	SYN byte = 0x16
	ENQ byte = 0x05
	ACK byte = 0x06
	NAK byte = 0x15
	EOT byte = 0x04
	DC1 byte = 0x11
	DC2 byte = 0x12
)

// Frame sizes.
const (
	ControlFrameSize = 3    // SYN, piggyback, code
	DataFrameSize    = 1025 // SYN, piggyback, SOT, 1020 payload, 2 CRC

	// PayloadSize is the maximum number of bytes drained from the
	// outbound queue into a single data frame; short payloads are
	// zero-padded to this length.
	PayloadSize = 1020

	// Byte offsets within a data frame.
	offSyn        = 0
	offPiggyback  = 1
	offSOT        = 2
	offPayload    = 3
	offCRCStart   = 1023
	crcSpanStart  = 1 // CRC covers bytes [1..1022] inclusive
	crcSpanEndExc = 1023
)

// Byte offsets within a control frame.
const (
	ctrlOffSyn       = 0
	ctrlOffPiggyback = 1
	ctrlOffCode      = 2
)
