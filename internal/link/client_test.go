package link

import (
	"bytes"
	"errors"
	"testing"

	"drying_oven/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingApplier struct {
	applied []protocol.Mask
}

func (r *recordingApplier) ApplyOutputs(m protocol.Mask) { r.applied = append(r.applied, m) }

type fixedStatus struct {
	snap  protocol.StatusSnapshot
	calls int
}

func (f *fixedStatus) FillStatus(s *protocol.StatusSnapshot) {
	f.calls++
	*s = f.snap
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("uart gone") }

func newTestClient(t *testing.T, status StatusFiller) (*Client, *bytes.Buffer, *recordingApplier, *[]string) {
	t.Helper()
	var out bytes.Buffer
	app := &recordingApplier{}
	var tx []string
	c := NewClient(&out, app, status, ClientOptions{
		OnTx: func(line string) { tx = append(tx, line) },
	})
	return c, &out, app, &tx
}

func TestClient_SetAcksRequestedMask(t *testing.T) {
	c, out, app, tx := newTestClient(t, nil)

	require.NoError(t, c.Feed([]byte("H;SET;00FF\r\n")))
	assert.Equal(t, "C;ACK;SET;00FF\r\n", out.String())
	assert.Equal(t, []string{"C;ACK;SET;00FF"}, *tx)
	assert.Equal(t, []protocol.Mask{0x00FF}, app.applied)

	m, changed := c.TakeNewOutputs()
	assert.True(t, changed)
	assert.Equal(t, protocol.Mask(0x00FF), m)
	_, changed = c.TakeNewOutputs()
	assert.False(t, changed)
}

func TestClient_UpdClearWins(t *testing.T) {
	c, out, _, _ := newTestClient(t, nil)
	require.NoError(t, c.HandleLine("H;SET;00FF"))
	out.Reset()

	require.NoError(t, c.HandleLine("H;UPD;0008;0008"))
	assert.Equal(t, protocol.Mask(0x00F7), c.Mask())
	assert.Equal(t, "C;ACK;UPD;00F7\r\n", out.String())
}

func TestClient_UpdFromStartingMask(t *testing.T) {
	c, out, _, _ := newTestClient(t, nil)
	require.NoError(t, c.HandleLine("H;SET;000F"))
	out.Reset()

	require.NoError(t, c.HandleLine("H;UPD;0008;0002"))
	assert.Equal(t, "C;ACK;UPD;000D\r\n", out.String())
}

func TestClient_TogInvolution(t *testing.T) {
	for _, start := range []protocol.Mask{0x0000, 0x00FF, 0x1234, 0xFFFF, 0x0040} {
		for _, tog := range []protocol.Mask{0x0001, 0x00F0, 0xFFFF, 0x0000} {
			c, _, _, _ := newTestClient(t, nil)
			require.NoError(t, c.HandleLine(string(mustEncode(t, protocol.HostSet(start)))))
			require.NoError(t, c.HandleLine(string(mustEncode(t, protocol.HostTog(tog)))))
			require.NoError(t, c.HandleLine(string(mustEncode(t, protocol.HostTog(tog)))))
			assert.Equal(t, start, c.Mask(), "start %04X tog %04X", start, tog)
		}
	}
}

func TestClient_TogTwiceFromZero(t *testing.T) {
	c, _, _, tx := newTestClient(t, nil)
	require.NoError(t, c.Feed([]byte("H;TOG;0001\r\nH;TOG;0001\r\n")))
	assert.Equal(t, []string{"C;ACK;TOG;0001", "C;ACK;TOG;0000"}, *tx)
}

func TestClient_GetStatusUsesFiller(t *testing.T) {
	fs := &fixedStatus{snap: protocol.StatusSnapshot{Mask: 0x0041, Analog: [4]uint16{1, 2, 3, 4}, TempRaw: 240}}
	c, out, _, _ := newTestClient(t, fs)

	require.NoError(t, c.HandleLine("H;GET;STATUS"))
	assert.Equal(t, 1, fs.calls)
	assert.Equal(t, "C;STATUS;0041;1;2;3;4;240\r\n", out.String())
	assert.False(t, c.StatusRequested())
}

func TestClient_GetStatusWithoutFillerWaitsForCaller(t *testing.T) {
	c, out, _, _ := newTestClient(t, nil)

	require.NoError(t, c.HandleLine("H;GET;STATUS"))
	assert.True(t, c.StatusRequested())
	assert.Zero(t, out.Len())

	require.NoError(t, c.SendStatus(protocol.StatusSnapshot{Mask: 0x0020}))
	assert.False(t, c.StatusRequested())
	assert.Equal(t, "C;STATUS;0020;0;0;0;0;0\r\n", out.String())
}

func TestClient_PingRstAndErrors(t *testing.T) {
	c, out, app, _ := newTestClient(t, nil)

	require.NoError(t, c.HandleLine("H;PING"))
	require.NoError(t, c.HandleLine("H;RST"))
	require.NoError(t, c.ReportError(7))
	assert.Equal(t, "C;PONG\r\nC;RST\r\nC;ERR;SET;7\r\n", out.String())
	assert.Empty(t, app.applied)
}

func TestClient_IgnoresClientFramesAndCountsJunk(t *testing.T) {
	beats := 0
	var fails []string
	var out bytes.Buffer
	c := NewClient(&out, nil, nil, ClientOptions{
		OnHeartbeat: func() { beats++ },
		OnParseFail: func(line string, err error) { fails = append(fails, line) },
	})

	require.NoError(t, c.HandleLine("C;PONG"))
	require.NoError(t, c.Feed([]byte("garbage\r\nH;SET;ZZ\r\nH;PING\r\n")))

	assert.Equal(t, "C;PONG\r\n", out.String())
	assert.Equal(t, 1, beats)
	assert.Equal(t, uint64(2), c.ParseFailures())
	assert.Equal(t, []string{"garbage", "H;SET;ZZ"}, fails)
}

func TestClient_WriteErrorSurfaces(t *testing.T) {
	c := NewClient(failingWriter{}, nil, nil, ClientOptions{})
	err := c.HandleLine("H;PING")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uart gone")
}

func mustEncode(t *testing.T, m protocol.Message) []byte {
	t.Helper()
	b, err := protocol.Encode(m)
	require.NoError(t, err)
	return b
}
