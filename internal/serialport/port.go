// Package serialport opens the byte stream both link ends run on: a UART via
// goburrow/serial, or a tcp:// address for bench setups behind a serial bridge.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/goburrow/serial"
)

const tcpScheme = "tcp://"

// Params describes the port. Zero fields take EnsureDefaults values.
type Params struct {
	Address  string `mapstructure:"address"`
	BaudRate int    `mapstructure:"baud_rate"`
	DataBits int    `mapstructure:"data_bits"`
	StopBits int    `mapstructure:"stop_bits"`
	Parity   string `mapstructure:"parity"`
	// Timeout bounds a single Read; a timed-out Read returns (0, nil).
	Timeout time.Duration `mapstructure:"timeout"`
}

// EnsureDefaults fills 115200 8N1 with a short read timeout.
func EnsureDefaults(p *Params) {
	if p.BaudRate == 0 {
		p.BaudRate = 115200
	}
	if p.DataBits == 0 {
		p.DataBits = 8
	}
	if p.StopBits == 0 {
		p.StopBits = 1
	}
	if p.Parity == "" {
		p.Parity = "N"
	}
	if p.Timeout <= 0 {
		p.Timeout = 100 * time.Millisecond
	}
}

// Open returns a port whose Read never reports a timeout as an error, so a
// receive loop can poll its context between reads.
func Open(p Params) (io.ReadWriteCloser, error) {
	EnsureDefaults(&p)
	if p.Address == "" {
		return nil, errors.New("serialport: empty address")
	}

	if strings.HasPrefix(p.Address, tcpScheme) {
		addr := strings.TrimPrefix(p.Address, tcpScheme)
		conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		return &tcpPort{Conn: conn, timeout: p.Timeout}, nil
	}

	port, err := serial.Open(&serial.Config{
		Address:  p.Address,
		BaudRate: p.BaudRate,
		DataBits: p.DataBits,
		StopBits: p.StopBits,
		Parity:   p.Parity,
		Timeout:  p.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", p.Address, err)
	}
	return &uartPort{port: port}, nil
}

type uartPort struct {
	port serial.Port
}

func (u *uartPort) Read(b []byte) (int, error) {
	n, err := u.port.Read(b)
	if errors.Is(err, serial.ErrTimeout) {
		return n, nil
	}
	return n, err
}

func (u *uartPort) Write(b []byte) (int, error) { return u.port.Write(b) }
func (u *uartPort) Close() error                { return u.port.Close() }

type tcpPort struct {
	net.Conn
	timeout time.Duration
}

func (t *tcpPort) Read(b []byte) (int, error) {
	if err := t.Conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return 0, err
	}
	n, err := t.Conn.Read(b)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}
	return n, err
}
