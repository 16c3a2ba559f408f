package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"drying_oven/internal/actuator"
	"drying_oven/internal/link"
	"drying_oven/internal/logger"
	"drying_oven/internal/metrics"
	"drying_oven/internal/protocol"
	"drying_oven/internal/serialport"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Run the actuator client on simulated pins",
	Long: `client answers the host over the serial link and drives a simulated board.
Commands on stdin: "door" toggles the door sensor, "temp <C>" sets the chamber
temperature, "status" prints the current outputs.`,
	RunE: runClient,
}

func init() {
	clientCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (disabled when empty)")
	rootCmd.AddCommand(clientCmd)
}

func runClient(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateClient(); err != nil {
		return err
	}
	log := logger.Get(cfg.Log.Options(os.Stderr)).Named("client")
	metrics.RegisterMetrics()

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Errorw("metrics_server_failed", "err", err)
			}
		}()
	}

	port, err := serialport.Open(cfg.Serial)
	if err != nil {
		return err
	}
	defer func() { _ = port.Close() }()

	pins := actuator.NewSimPins()
	board := actuator.NewBoard(pins, log.Named("board"))
	client := link.NewClient(port, board, board, link.ClientOptions{
		OnTx: func(line string) {
			metrics.RecordTx(metrics.SideClient, frameKind(line))
			log.Debugw("link_tx", "line", line)
		},
		OnParseFail: func(line string, err error) {
			metrics.RecordParseFailure(metrics.SideClient)
			log.Debugw("link_parse_failed", "line", line, "error", err)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refresh := cfg.Client.RefreshInterval
	if refresh <= 0 {
		refresh = 100 * time.Millisecond
	}
	log.Infow("client_started", "address", cfg.Serial.Address, "refresh_interval", refresh)
	return clientLoop(ctx, client, board, pins, port, os.Stdin, refresh, log)
}

// clientLoop is the single owner of the client engine and the board: bytes
// from the port, operator input and the refresh tick are all handled here.
func clientLoop(ctx context.Context, client *link.Client, board *actuator.Board, pins *actuator.SimPins,
	port io.Reader, stdin io.Reader, refresh time.Duration, log *logger.Logger) error {
	rx := make(chan []byte)
	rxErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := port.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				select {
				case rx <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				rxErr <- err
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(stdin)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	t := time.NewTicker(refresh)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-rxErr:
			if errors.Is(err, io.EOF) {
				log.Warnw("link_closed")
				return nil
			}
			return fmt.Errorf("link read: %w", err)
		case chunk := <-rx:
			if err := client.Feed(chunk); err != nil {
				return fmt.Errorf("link write: %w", err)
			}
		case line := <-lines:
			operatorCommand(line, pins, client, log)
			board.Refresh()
		case now := <-t.C:
			pins.Step(now)
			board.Refresh()
			metrics.SetOverflows(metrics.SideClient, client.Overflows())
		}
	}
}

func operatorCommand(line string, pins *actuator.SimPins, client *link.Client, log *logger.Logger) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "door":
		log.Infow("door_toggled", "open", pins.ToggleDoor())
	case "temp":
		if len(fields) != 2 {
			log.Warnw("usage: temp <celsius>")
			return
		}
		c, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			log.Warnw("bad temperature", "value", fields[1])
			return
		}
		pins.SetTempC(c)
	case "status":
		log.Infow("outputs",
			"requested", client.Mask().String(),
			"driven", pins.Outputs().String(),
			"door_open", pins.DoorOpen(),
			"parse_failures", client.ParseFailures())
	default:
		log.Warnw("unknown command", "line", line)
	}
}

func frameKind(line string) string {
	m, err := protocol.Decode(line)
	if err != nil {
		return protocol.KindUnknown.String()
	}
	return m.Kind.String()
}
