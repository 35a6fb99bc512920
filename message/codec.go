package message

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidField is returned when a message cannot be represented in the
// script format.
var ErrInvalidField = errors.New("invalid message field")

// Script records are an 8-byte little-endian signed timer followed by five
// NUL-terminated strings: system, to, from, cmd and the delimited args.
const (
	timerSize    = 8
	fieldsPerRec = 5
)

// Decoder reads script records from a byte stream.
type Decoder struct {
	r       *bufio.Reader
	skipped int
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode returns the next well-formed record. Records without a system or a
// command are skipped. io.EOF is returned once the stream ends, including
// when it ends in the middle of a record.
func (d *Decoder) Decode() (Message, error) {
	for {
		msg, err := d.decodeRecord()
		if err != nil {
			return Message{}, err
		}
		if msg.System == "" || msg.Cmd == "" {
			d.skipped++
			continue
		}
		return msg, nil
	}
}

// Skipped returns the number of records dropped so far, including a trailing
// truncated record.
func (d *Decoder) Skipped() int {
	return d.skipped
}

func (d *Decoder) decodeRecord() (Message, error) {
	var raw [timerSize]byte
	n, err := io.ReadFull(d.r, raw[:])
	if err != nil {
		if n > 0 {
			d.skipped++
		}
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return Message{}, io.EOF
		}
		return Message{}, err
	}

	var fields [fieldsPerRec]string
	for i := range fields {
		s, err := d.r.ReadString(0)
		if err != nil {
			d.skipped++
			if err == io.EOF {
				return Message{}, io.EOF
			}
			return Message{}, err
		}
		fields[i] = s[:len(s)-1]
	}

	return Message{
		Timer:  int64(binary.LittleEndian.Uint64(raw[:])),
		System: fields[0],
		To:     fields[1],
		From:   fields[2],
		Cmd:    fields[3],
		Args:   SplitArgs(fields[4]),
	}, nil
}

// DecodeAll reads every well-formed record from r.
func DecodeAll(r io.Reader) ([]Message, error) {
	dec := NewDecoder(r)
	var out []Message
	for {
		msg, err := dec.Decode()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, msg)
	}
}

// Encoder writes script records.
type Encoder struct {
	w io.Writer
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes msg as a single record. Fields containing NUL and arguments
// containing the separator cannot be encoded.
func (e *Encoder) Encode(msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}

	buf := make([]byte, timerSize, timerSize+64)
	binary.LittleEndian.PutUint64(buf, uint64(msg.Timer))
	for _, field := range []string{msg.System, msg.To, msg.From, msg.Cmd, JoinArgs(msg.Args)} {
		buf = append(buf, field...)
		buf = append(buf, 0)
	}

	_, err := e.w.Write(buf)
	return err
}

// EncodeAll writes every message in order.
func EncodeAll(w io.Writer, msgs []Message) error {
	enc := NewEncoder(w)
	for i, msg := range msgs {
		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

func validate(msg Message) error {
	if msg.System == "" || msg.Cmd == "" {
		return fmt.Errorf("%w: system and cmd are required", ErrInvalidField)
	}
	for name, field := range map[string]string{
		"system": msg.System,
		"to":     msg.To,
		"from":   msg.From,
		"cmd":    msg.Cmd,
	} {
		if strings.IndexByte(field, 0) >= 0 {
			return fmt.Errorf("%w: %s contains NUL", ErrInvalidField, name)
		}
	}
	for i, arg := range msg.Args {
		if strings.IndexByte(arg, 0) >= 0 || strings.Contains(arg, ArgSeparator) {
			return fmt.Errorf("%w: arg %d contains NUL or %q", ErrInvalidField, i, ArgSeparator)
		}
	}
	return nil
}
