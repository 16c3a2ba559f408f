package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fed struct {
	line string
	err  error
}

// feedAll pushes s through a and copies every completed line out of the buffer.
func feedAll(a *Assembler, s string) []fed {
	var out []fed
	for i := 0; i < len(s); i++ {
		line, err := a.Feed(s[i])
		if line != nil || err != nil {
			out = append(out, fed{line: string(line), err: err})
		}
	}
	return out
}

func TestAssembler_CRLFAndBareLF(t *testing.T) {
	a := NewAssembler(SentinelHost)
	got := feedAll(a, "H;PING\r\nH;GET;STATUS\n")
	require.Len(t, got, 2)
	assert.Equal(t, "H;PING", got[0].line)
	assert.Equal(t, "H;GET;STATUS", got[1].line)
	assert.NoError(t, got[0].err)
	assert.NoError(t, got[1].err)
}

func TestAssembler_StrayCRIgnored(t *testing.T) {
	a := NewAssembler(SentinelClient)
	got := feedAll(a, "C;\rPO\rNG\r\n")
	require.Len(t, got, 1)
	assert.Equal(t, "C;PONG", got[0].line)
}

func TestAssembler_EmptyLinesProduceNothing(t *testing.T) {
	a := NewAssembler(SentinelHost)
	assert.Empty(t, feedAll(a, "\r\n\n\r\r\n"))
}

func TestAssembler_StripsLeadingNoise(t *testing.T) {
	a := NewAssembler(SentinelClient)
	got := feedAll(a, "\x00\xff~!C;ACK;SET;00FF\r\n")
	require.Len(t, got, 1)
	assert.Equal(t, "C;ACK;SET;00FF", got[0].line)
}

func TestAssembler_JunkWithoutSentinel(t *testing.T) {
	a := NewAssembler(SentinelHost)
	got := feedAll(a, "boot noise 123\n")
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].err, ErrJunkLine)
	assert.Equal(t, "boot noise 123", got[0].line)

	got = feedAll(a, "H;PING\n")
	require.Len(t, got, 1)
	assert.NoError(t, got[0].err)
}

func TestAssembler_OverflowDiscardsBuffer(t *testing.T) {
	a := NewAssembler(SentinelHost)
	assert.Empty(t, feedAll(a, strings.Repeat("x", MaxLineLen)))
	assert.Equal(t, MaxLineLen, a.Pending())
	assert.Zero(t, a.Overflows())

	got := feedAll(a, "yH;PING\n")
	require.Len(t, got, 1)
	assert.Equal(t, "H;PING", got[0].line)
	assert.Equal(t, uint64(1), a.Overflows())
}

func TestAssembler_OverflowKeepsOnlyTheTail(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "frame starts at the overflowing byte",
			input: strings.Repeat("x", MaxLineLen) + "H;SET;00FF\n",
			want:  "H;SET;00FF",
		},
		{
			name:    "frame cut by the overflow",
			input:   strings.Repeat("x", MaxLineLen-5) + "H;SET;00FF\n",
			want:    ";00FF",
			wantErr: ErrJunkLine,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAssembler(SentinelHost)
			got := feedAll(a, tc.input)
			require.Len(t, got, 1)
			assert.Equal(t, tc.want, got[0].line)
			assert.ErrorIs(t, got[0].err, tc.wantErr)
			assert.Equal(t, uint64(1), a.Overflows())
			assert.Zero(t, a.Pending())
		})
	}
}

func TestAssembler_Reset(t *testing.T) {
	a := NewAssembler(SentinelHost)
	feedAll(a, "H;SE")
	a.Reset()
	assert.Zero(t, a.Pending())
	got := feedAll(a, "H;RST\n")
	require.Len(t, got, 1)
	assert.Equal(t, "H;RST", got[0].line)
}
