package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allMessages() []Message {
	return []Message{
		HostSet(0x00FF),
		HostUpd(0x0008, 0x0002),
		HostTog(0x0001),
		HostGetStatus(),
		HostPing(),
		HostRst(),
		ClientAckSet(0x00FF),
		ClientAckUpd(0x000D),
		ClientAckTog(0xFFFF),
		ClientErrSet(-7),
		ClientErrSet(42),
		ClientStatus(StatusSnapshot{Mask: 0x00DF, Analog: [4]uint16{0, 4095, 12, 65535}, TempRaw: -8}),
		ClientStatus(StatusSnapshot{}),
		ClientPong(),
		ClientRst(),
	}
}

func TestEncode_Literals(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{HostSet(0x00FF), "H;SET;00FF\r\n"},
		{HostUpd(0x0008, 0x0002), "H;UPD;0008;0002\r\n"},
		{HostTog(0xABCD), "H;TOG;ABCD\r\n"},
		{HostGetStatus(), "H;GET;STATUS\r\n"},
		{HostPing(), "H;PING\r\n"},
		{HostRst(), "H;RST\r\n"},
		{ClientAckSet(0x00FF), "C;ACK;SET;00FF\r\n"},
		{ClientAckUpd(0x000D), "C;ACK;UPD;000D\r\n"},
		{ClientAckTog(0x0001), "C;ACK;TOG;0001\r\n"},
		{ClientErrSet(3), "C;ERR;SET;3\r\n"},
		{ClientStatus(StatusSnapshot{Mask: 0x00DF, Analog: [4]uint16{0, 4095, 12, 7}, TempRaw: -8}), "C;STATUS;00DF;0;4095;12;7;-8\r\n"},
		{ClientPong(), "C;PONG\r\n"},
		{ClientRst(), "C;RST\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.msg.Kind.String(), func(t *testing.T) {
			got, err := Encode(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestEncode_Unknown(t *testing.T) {
	_, err := Encode(Message{Kind: KindUnknown})
	require.ErrorIs(t, err, ErrNotEncodable)
}

func TestRoundTrip(t *testing.T) {
	for _, m := range allMessages() {
		line, err := Encode(m)
		require.NoError(t, err)

		got, err := Decode(string(line))
		require.NoError(t, err, "line %q", line)
		assert.Equal(t, m, got)
	}
}

func TestRoundTrip_AllMasks(t *testing.T) {
	for v := 0; v <= 0xFFFF; v++ {
		mask := Mask(v)

		line, err := Encode(HostSet(mask))
		require.NoError(t, err)
		got, err := Decode(string(line))
		require.NoError(t, err)
		require.Equal(t, mask, got.Mask)

		line, err = Encode(ClientStatus(StatusSnapshot{Mask: mask}))
		require.NoError(t, err)
		got, err = Decode(string(line))
		require.NoError(t, err)
		require.Equal(t, mask, got.Status.Mask)
	}
}

func TestDecode_LowercaseHex(t *testing.T) {
	m, err := Decode("H;UPD;00ff;ab")
	require.NoError(t, err)
	assert.Equal(t, HostUpd(0x00FF, 0x00AB), m)
}

func TestDecode_BareLineWithoutTerminator(t *testing.T) {
	m, err := Decode("C;PONG")
	require.NoError(t, err)
	assert.Equal(t, KindClientPong, m.Kind)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"", ErrEmptyLine},
		{"H", ErrFieldCount},
		{"X;PING", ErrUnknownSender},
		{"h;PING", ErrUnknownSender},
		{"H;FOO", ErrUnknownCommand},
		{"H;GET;TEMP", ErrUnknownCommand},
		{"H;SET", ErrFieldCount},
		{"H;SET;00FF;1", ErrFieldCount},
		{"H;SET;GGGG", ErrBadHex},
		{"H;SET;12345", ErrBadHex},
		{"H;SET;-1", ErrBadHex},
		{"H;UPD;0001", ErrFieldCount},
		{"H;PING;1", ErrFieldCount},
		{"C;ACK;FOO;0001", ErrUnknownCommand},
		{"C;ACK;SET", ErrFieldCount},
		{"C;ERR;SET;x", ErrBadDecimal},
		{"C;ERR;UPD;1", ErrUnknownCommand},
		{"C;STATUS;BLA", ErrFieldCount},
		{"C;STATUS;ZZZZ;1;2;3;4;5", ErrBadHex},
		{"C;STATUS;0001;1;2;3;70000;5", ErrBadDecimal},
		{"C;STATUS;0001;1;2;3;-4;5", ErrBadDecimal},
		{"C;STATUS;0001;1;2;3;4;1.5", ErrBadDecimal},
		{"C;PONG;X", ErrFieldCount},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			m, err := Decode(tt.line)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, KindUnknown, m.Kind)

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.line, de.Line)
		})
	}
}

func TestKind_Direction(t *testing.T) {
	for _, m := range allMessages() {
		assert.NotEqual(t, m.Kind.FromHost(), m.Kind.FromClient(), m.Kind.String())
	}
	assert.False(t, KindUnknown.FromHost())
	assert.False(t, KindUnknown.FromClient())
}

func TestMask_String(t *testing.T) {
	assert.Equal(t, "none", Mask(0).String())
	assert.Equal(t, "fan12v|heater", (BitFan12V | BitHeater).String())
	assert.Equal(t, "door|0x0100", (BitDoor | 0x0100).String())
}

func TestStatusSnapshot_Helpers(t *testing.T) {
	s := StatusSnapshot{Mask: BitDoor, TempRaw: 242}
	assert.True(t, s.DoorOpen())
	assert.InDelta(t, 60.5, s.TempC(), 1e-9)
}
