package protocol

import "bytes"

// MaxLineLen is the assembler buffer capacity in bytes.
const MaxLineLen = 120

// Sentinel bytes a receiver scans for when dropping leading noise.
const (
	SentinelHost   byte = 'H' // lines a Client expects
	SentinelClient byte = 'C' // lines a Host expects
)

// Assembler turns a byte stream into candidate lines using a fixed buffer.
//
// This type is NOT goroutine-safe; it belongs to exactly one link engine.
type Assembler struct {
	buf       [MaxLineLen]byte
	n         int
	sentinel  byte
	overflows uint64
}

// NewAssembler returns an assembler that keeps lines starting at sentinel.
func NewAssembler(sentinel byte) *Assembler {
	return &Assembler{sentinel: sentinel}
}

// Feed consumes one byte. It returns (nil, nil) while a line is incomplete,
// the sanitized line when LF arrives, or the raw line with ErrJunkLine when
// the line holds no sentinel. The returned slice aliases the internal buffer
// and is only valid until the next call to Feed.
func (a *Assembler) Feed(b byte) ([]byte, error) {
	switch b {
	case '\r':
		return nil, nil
	case '\n':
		if a.n == 0 {
			return nil, nil
		}
		line := a.buf[:a.n]
		a.n = 0
		i := bytes.IndexByte(line, a.sentinel)
		if i < 0 {
			return line, ErrJunkLine
		}
		return line[i:], nil
	}
	if a.n == len(a.buf) {
		// overflow: drop what we have and start over from this byte
		a.n = 0
		a.overflows++
	}
	a.buf[a.n] = b
	a.n++
	return nil, nil
}

// Pending returns the number of buffered bytes of the incomplete line.
func (a *Assembler) Pending() int { return a.n }

// Overflows returns how many times the buffer was discarded for exceeding MaxLineLen.
func (a *Assembler) Overflows() uint64 { return a.overflows }

// Reset drops any partial line.
func (a *Assembler) Reset() { a.n = 0 }
