package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Wire tokens.
const (
	SenderHost   = "H"
	SenderClient = "C"

	Separator  = ';'
	Terminator = "\r\n"

	cmdSet    = "SET"
	cmdUpd    = "UPD"
	cmdTog    = "TOG"
	cmdGet    = "GET"
	cmdStatus = "STATUS"
	cmdPing   = "PING"
	cmdPong   = "PONG"
	cmdRst    = "RST"
	cmdAck    = "ACK"
	cmdErr    = "ERR"

	hexWidth = 4
)

var (
	ErrEmptyLine      = errors.New("protocol: empty line")
	ErrUnknownSender  = errors.New("protocol: unknown sender")
	ErrUnknownCommand = errors.New("protocol: unknown command")
	ErrFieldCount     = errors.New("protocol: wrong field count")
	ErrBadHex         = errors.New("protocol: malformed hex field")
	ErrBadDecimal     = errors.New("protocol: malformed decimal field")
	ErrJunkLine       = errors.New("protocol: no sentinel in line")
	ErrNotEncodable   = errors.New("protocol: message kind cannot be encoded")
)

// DecodeError reports a line that failed structural validation.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("%v: %q", e.Err, e.Line) }

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode renders m as one wire line including the CRLF terminator.
func Encode(m Message) ([]byte, error) {
	b := make([]byte, 0, 48)
	switch m.Kind {
	case KindHostSet:
		b = appendHexArg(appendTokens(b, SenderHost, cmdSet), m.Mask)
	case KindHostUpd:
		b = appendHexArg(appendTokens(b, SenderHost, cmdUpd), m.Mask)
		b = appendHexArg(b, m.Clear)
	case KindHostTog:
		b = appendHexArg(appendTokens(b, SenderHost, cmdTog), m.Mask)
	case KindHostGetStatus:
		b = appendTokens(b, SenderHost, cmdGet, cmdStatus)
	case KindHostPing:
		b = appendTokens(b, SenderHost, cmdPing)
	case KindHostRst:
		b = appendTokens(b, SenderHost, cmdRst)
	case KindClientAckSet:
		b = appendHexArg(appendTokens(b, SenderClient, cmdAck, cmdSet), m.Mask)
	case KindClientAckUpd:
		b = appendHexArg(appendTokens(b, SenderClient, cmdAck, cmdUpd), m.Mask)
	case KindClientAckTog:
		b = appendHexArg(appendTokens(b, SenderClient, cmdAck, cmdTog), m.Mask)
	case KindClientErrSet:
		b = appendTokens(b, SenderClient, cmdErr, cmdSet)
		b = strconv.AppendInt(append(b, Separator), int64(m.Code), 10)
	case KindClientStatus:
		b = appendHexArg(appendTokens(b, SenderClient, cmdStatus), m.Status.Mask)
		for _, a := range m.Status.Analog {
			b = strconv.AppendUint(append(b, Separator), uint64(a), 10)
		}
		b = strconv.AppendInt(append(b, Separator), int64(m.Status.TempRaw), 10)
	case KindClientPong:
		b = appendTokens(b, SenderClient, cmdPong)
	case KindClientRst:
		b = appendTokens(b, SenderClient, cmdRst)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotEncodable, m.Kind)
	}
	return append(b, Terminator...), nil
}

func appendTokens(b []byte, tokens ...string) []byte {
	for i, t := range tokens {
		if i > 0 {
			b = append(b, Separator)
		}
		b = append(b, t...)
	}
	return b
}

func appendHexArg(b []byte, m Mask) []byte {
	return appendHex(append(b, Separator), m)
}

const hexDigits = "0123456789ABCDEF"

func appendHex(b []byte, m Mask) []byte {
	return append(b,
		hexDigits[(m>>12)&0xF],
		hexDigits[(m>>8)&0xF],
		hexDigits[(m>>4)&0xF],
		hexDigits[m&0xF],
	)
}

func formatHex(m Mask) string { return string(appendHex(nil, m)) }

// Decode parses one line. A trailing CR/LF is tolerated. On failure it returns a
// KindUnknown message and a *DecodeError.
func Decode(line string) (Message, error) {
	trimmed := strings.TrimRight(line, "\r\n")
	m, err := decodeFields(strings.Split(trimmed, string(Separator)))
	if err != nil {
		return Message{Kind: KindUnknown}, &DecodeError{Line: trimmed, Err: err}
	}
	return m, nil
}

func decodeFields(f []string) (Message, error) {
	if len(f) == 1 && f[0] == "" {
		return Message{}, ErrEmptyLine
	}
	if len(f) < 2 {
		return Message{}, ErrFieldCount
	}
	switch f[0] {
	case SenderHost:
		return decodeHost(f[1], f[2:])
	case SenderClient:
		return decodeClient(f[1], f[2:])
	default:
		return Message{}, ErrUnknownSender
	}
}

func decodeHost(cmd string, args []string) (Message, error) {
	switch cmd {
	case cmdSet, cmdTog:
		if len(args) != 1 {
			return Message{}, ErrFieldCount
		}
		m, err := parseHex(args[0])
		if err != nil {
			return Message{}, err
		}
		if cmd == cmdSet {
			return HostSet(m), nil
		}
		return HostTog(m), nil
	case cmdUpd:
		if len(args) != 2 {
			return Message{}, ErrFieldCount
		}
		set, err := parseHex(args[0])
		if err != nil {
			return Message{}, err
		}
		clr, err := parseHex(args[1])
		if err != nil {
			return Message{}, err
		}
		return HostUpd(set, clr), nil
	case cmdGet:
		if len(args) != 1 {
			return Message{}, ErrFieldCount
		}
		if args[0] != cmdStatus {
			return Message{}, ErrUnknownCommand
		}
		return HostGetStatus(), nil
	case cmdPing:
		if len(args) != 0 {
			return Message{}, ErrFieldCount
		}
		return HostPing(), nil
	case cmdRst:
		if len(args) != 0 {
			return Message{}, ErrFieldCount
		}
		return HostRst(), nil
	default:
		return Message{}, ErrUnknownCommand
	}
}

func decodeClient(cmd string, args []string) (Message, error) {
	switch cmd {
	case cmdAck:
		if len(args) != 2 {
			return Message{}, ErrFieldCount
		}
		m, err := parseHex(args[1])
		if err != nil {
			return Message{}, err
		}
		switch args[0] {
		case cmdSet:
			return ClientAckSet(m), nil
		case cmdUpd:
			return ClientAckUpd(m), nil
		case cmdTog:
			return ClientAckTog(m), nil
		default:
			return Message{}, ErrUnknownCommand
		}
	case cmdErr:
		if len(args) != 2 {
			return Message{}, ErrFieldCount
		}
		if args[0] != cmdSet {
			return Message{}, ErrUnknownCommand
		}
		code, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return Message{}, ErrBadDecimal
		}
		return ClientErrSet(int32(code)), nil
	case cmdStatus:
		return decodeStatus(args)
	case cmdPong:
		if len(args) != 0 {
			return Message{}, ErrFieldCount
		}
		return ClientPong(), nil
	case cmdRst:
		if len(args) != 0 {
			return Message{}, ErrFieldCount
		}
		return ClientRst(), nil
	default:
		return Message{}, ErrUnknownCommand
	}
}

func decodeStatus(args []string) (Message, error) {
	if len(args) != 6 {
		return Message{}, ErrFieldCount
	}
	var s StatusSnapshot
	var err error
	if s.Mask, err = parseHex(args[0]); err != nil {
		return Message{}, err
	}
	for i := range s.Analog {
		v, err := strconv.ParseUint(args[1+i], 10, 16)
		if err != nil {
			return Message{}, ErrBadDecimal
		}
		s.Analog[i] = uint16(v)
	}
	t, err := strconv.ParseInt(args[5], 10, 32)
	if err != nil {
		return Message{}, ErrBadDecimal
	}
	s.TempRaw = int32(t)
	return ClientStatus(s), nil
}

// parseHex accepts 1 to 4 hex digits in either case.
func parseHex(s string) (Mask, error) {
	if len(s) == 0 || len(s) > hexWidth {
		return 0, ErrBadHex
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, ErrBadHex
	}
	return Mask(v), nil
}
