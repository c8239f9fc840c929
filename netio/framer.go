// Package netio is the connection multiplexer: framers for the wire
// formats named in §6, a Client/Service/Connector model for non-blocking
// socket I/O, and the output encoders (FATSV, VRS JSON, snapshot files).
//
// Grounded on Regentag-go1090's rtl_adsb.StartReceive (the
// scanner-over-a-byte-stream shape for the AVR framer) and
// _examples/original_source/net_io.h's net_service/client/net_connector
// struct layout, generalized from "exec a subprocess and scan its
// stdout" into framers for any io.Reader/io.Writer pair so the same code
// serves TCP sockets.
package netio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
)

// Frame is one demodulated (or pre-demodulated) Mode-S/Mode-A/C frame
// plus its framing metadata, independent of which wire format produced
// it.
type Frame struct {
	Payload     []byte
	RecvClock   uint64
	SignalLevel byte
	MLAT        bool
}

const beastEscape = 0x1A

// BeastReader decodes the Beast binary framing: 0x1A, a type byte, a
// 6-byte big-endian timestamp, a signal byte, and 2/7/14 payload bytes,
// with every literal 0x1A byte doubled.
type BeastReader struct {
	r *bufio.Reader
}

// NewBeastReader wraps r for Beast binary decoding.
func NewBeastReader(r io.Reader) *BeastReader {
	return &BeastReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// HULCStatus is the 24-byte big-endian status record carried by a Beast
// 'H' frame.
type HULCStatus struct {
	Raw [24]byte
}

// ReadFrame reads the next Beast frame. typ is one of '1'..'5' or 'H'.
func (b *BeastReader) ReadFrame() (typ byte, frame Frame, err error) {
	if err = b.syncToEscape(); err != nil {
		return 0, Frame{}, err
	}
	typ, err = b.readByte()
	if err != nil {
		return 0, Frame{}, err
	}

	var payloadLen int
	switch typ {
	case '1':
		payloadLen = 2
	case '2':
		payloadLen = 7
	case '3', '4', '5':
		payloadLen = 14
	case 'H':
		payloadLen = 24
	default:
		return 0, Frame{}, fmt.Errorf("netio: unknown beast frame type %q", typ)
	}

	tsBytes, err := b.readEscaped(6)
	if err != nil {
		return 0, Frame{}, err
	}
	sig, err := b.readEscaped(1)
	if err != nil {
		return 0, Frame{}, err
	}
	sigByte := sig[0]
	payload, err := b.readEscaped(payloadLen)
	if err != nil {
		return 0, Frame{}, err
	}

	ts := make([]byte, 8)
	copy(ts[2:], tsBytes)
	clock := binary.BigEndian.Uint64(ts)

	return typ, Frame{Payload: payload, RecvClock: clock, SignalLevel: sigByte}, nil
}

func (b *BeastReader) syncToEscape() error {
	for {
		c, err := b.r.ReadByte()
		if err != nil {
			return err
		}
		if c == beastEscape {
			return nil
		}
	}
}

func (b *BeastReader) readByte() (byte, error) {
	return b.r.ReadByte()
}

// readEscaped reads n logical bytes, un-doubling any 0x1A escape pairs.
func (b *BeastReader) readEscaped(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		c, err := b.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if c == beastEscape {
			next, err := b.r.ReadByte()
			if err != nil {
				return nil, err
			}
			if next != beastEscape {
				return nil, fmt.Errorf("netio: unescaped 0x1A in beast payload")
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// EncodeBeast writes one Beast binary frame of the given type.
func EncodeBeast(w io.Writer, typ byte, clock uint64, signal byte, payload []byte) error {
	buf := &bytes.Buffer{}
	buf.WriteByte(beastEscape)
	buf.WriteByte(typ)

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, clock)
	writeEscaped(buf, ts[2:])
	writeEscaped(buf, []byte{signal})
	writeEscaped(buf, payload)

	_, err := w.Write(buf.Bytes())
	return err
}

// BeastHeartbeat is the 11-byte zero-body keepalive frame of type '1'.
func BeastHeartbeat(w io.Writer) error {
	return EncodeBeast(w, '1', 0, 0, []byte{0, 0})
}

func writeEscaped(buf *bytes.Buffer, data []byte) {
	for _, c := range data {
		buf.WriteByte(c)
		if c == beastEscape {
			buf.WriteByte(beastEscape)
		}
	}
}

// BeastCommand is a Beast command frame (0x1A '1' <setting>); only 'j'/
// 'J' (Mode A/C enable/disable) is acted on per §6.
type BeastCommand struct {
	Setting byte
}

// ParseBeastCommand recognizes a 3-byte 0x1A '1' <c> command.
func ParseBeastCommand(b []byte) (BeastCommand, bool) {
	if len(b) != 3 || b[0] != beastEscape || b[1] != '1' {
		return BeastCommand{}, false
	}
	return BeastCommand{Setting: b[2]}, true
}

// AVRReader decodes AVR/raw ASCII lines: hex payload terminated by ';',
// optionally prefixed by '*', ':', '@' (timestamp), '%' (CRC-ok
// timestamp), or '<' (timestamp+signal).
type AVRReader struct {
	scanner *bufio.Scanner
}

// NewAVRReader wraps r for AVR line decoding.
func NewAVRReader(r io.Reader) *AVRReader {
	return &AVRReader{scanner: bufio.NewScanner(r)}
}

// ReadFrame reads the next AVR line. It returns io.EOF when the
// underlying reader is exhausted.
func (a *AVRReader) ReadFrame() (Frame, error) {
	for a.scanner.Scan() {
		line := a.scanner.Text()
		f, ok := parseAVRLine(line)
		if ok {
			return f, nil
		}
	}
	if err := a.scanner.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

func parseAVRLine(line string) (Frame, bool) {
	if len(line) == 0 {
		return Frame{}, false
	}
	if line[len(line)-1] != ';' {
		return Frame{}, false
	}
	line = line[:len(line)-1]

	var hasSignal bool
	switch line[0] {
	case '*', ':':
		line = line[1:]
	case '@', '%':
		line = line[1:] // timestamp prefix; caller doesn't need it decoded
		line = stripLeadingTimestamp(line)
	case '<':
		line = line[1:]
		line = stripLeadingTimestamp(line)
		hasSignal = true
	default:
		return Frame{}, false
	}

	if hasSignal && len(line) >= 2 {
		line = line[2:] // 2 hex digits of signal level precede the payload
	}

	payload, err := hex.DecodeString(line)
	if err != nil || (len(payload) != 7 && len(payload) != 14) {
		return Frame{}, false
	}
	return Frame{Payload: payload}, true
}

// stripLeadingTimestamp removes a 12-hex-digit (6-byte) timestamp prefix
// if present; AVR timestamps are a fixed width so this is a simple slice.
func stripLeadingTimestamp(line string) string {
	if len(line) >= 12 {
		return line[12:]
	}
	return line
}

// EncodeAVR writes one raw-hex line, "*HHHH...;\n".
func EncodeAVR(w io.Writer, payload []byte) error {
	_, err := fmt.Fprintf(w, "*%s;\n", upperHex(payload))
	return err
}

// EncodeAVRTimestamped writes "@TTTTTTTTTTTTHHHH...;\n".
func EncodeAVRTimestamped(w io.Writer, clock uint64, payload []byte) error {
	_, err := fmt.Fprintf(w, "@%012X%s;\n", clock, upperHex(payload))
	return err
}

// AVRHeartbeat is the "*0000;\n" keepalive.
func AVRHeartbeat(w io.Writer) error {
	_, err := fmt.Fprint(w, "*0000;\n")
	return err
}

func upperHex(b []byte) string {
	return fmt.Sprintf("%X", b)
}
