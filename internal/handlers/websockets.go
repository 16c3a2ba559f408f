package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000
	// an unchanged frame is repeated at least this often so displays can tell a stale feed
	resendAfter = 5 * time.Second
)

// Stream topics selectable with ?topic=.
const (
	topicState = "state"
	topicLink  = "link"
	topicAll   = "all"
)

type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Display panels connect from the plant LAN.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsStream publishes snapshots for its topics, skipping frames identical to
// the last one sent unless resendAfter has passed.
type wsStream struct {
	topics []string
	source func(topic string) any
	write  func(wsEnvelope) error
	now    func() time.Time

	last   map[string][]byte
	sentAt map[string]time.Time
}

func newWSStream(topics []string, source func(string) any, write func(wsEnvelope) error) *wsStream {
	return &wsStream{
		topics: topics,
		source: source,
		write:  write,
		now:    time.Now,
		last:   map[string][]byte{},
		sentAt: map[string]time.Time{},
	}
}

// publish sends every topic whose snapshot changed or went stale.
func (s *wsStream) publish() error {
	now := s.now()
	for _, topic := range s.topics {
		data, err := json.Marshal(s.source(topic))
		if err != nil {
			return err
		}
		prev, seen := s.last[topic]
		if seen && bytes.Equal(prev, data) && now.Sub(s.sentAt[topic]) < resendAfter {
			continue
		}
		if err := s.write(wsEnvelope{Type: topic, Data: data}); err != nil {
			return err
		}
		s.last[topic] = data
		s.sentAt[topic] = now
	}
	return nil
}

func (h *Handler) snapshotFor(topic string) any {
	if topic == topicLink {
		return h.services.Monitoring.GetLink()
	}
	return h.services.Monitoring.GetState()
}

// wsConnect streams runtime snapshots (?topic=state, default), link
// diagnostics (?topic=link) or both (?topic=all).
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)
	topics := parseTopics(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()
	if h.log != nil {
		h.log.Infow("ws_connected", "topics", topics, "interval", interval, "remote", c.ClientIP())
	}

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.drainReads(conn, done)

	stream := newWSStream(topics, h.snapshotFor, func(env wsEnvelope) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(env)
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := stream.publish(); err != nil {
		h.wsClosed("ws_write_failed", err)
		return
	}
	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.wsClosed("ws_ping_failed", err)
				return
			}
		case <-ticker.C:
			if err := stream.publish(); err != nil {
				h.wsClosed("ws_write_failed", err)
				return
			}
		}
	}
}

func (h *Handler) wsClosed(key string, err error) {
	if h.log != nil {
		h.log.Infow(key, "err", err)
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000, capped at maxInterval.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}
	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}
	return defaultInterval
}

// drainReads consumes control frames until the peer goes away.
func (h *Handler) drainReads(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.wsClosed("ws_read_closed", err)
			return
		}
	}
}

// parseTopics maps ?topic= to the published topics; unknown values mean state.
func parseTopics(c *gin.Context) []string {
	switch c.Query("topic") {
	case topicLink:
		return []string{topicLink}
	case topicAll:
		return []string{topicState, topicLink}
	default:
		return []string{topicState}
	}
}
