package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"seizowatch/internal/models"
	"seizowatch/internal/query"
	"seizowatch/internal/store"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	FrameEvents     = "events"
	FrameMonitoring = "monitoring"
	FrameError      = "error"
)

type streamFrame struct {
	Type    string                   `json:"type"`
	Events  *[]models.SeizureEvent   `json:"events,omitempty"`
	Sample  *models.MonitoringSample `json:"sample,omitempty"`
	Path    string                   `json:"path,omitempty"`
	Message string                   `json:"message,omitempty"`
}

// A monitoring frame without "sample" means the live channel is empty.

// outbox keeps only the newest pending frame of each type so store callbacks
// never wait on a slow client.
type outbox struct {
	mu      sync.Mutex
	pending map[string]streamFrame
	order   []string
	notify  chan struct{}
}

func newOutbox() *outbox {
	return &outbox{pending: make(map[string]streamFrame), notify: make(chan struct{}, 1)}
}

func (o *outbox) put(f streamFrame) {
	o.mu.Lock()
	if _, ok := o.pending[f.Type]; !ok {
		o.order = append(o.order, f.Type)
	}
	o.pending[f.Type] = f
	o.mu.Unlock()
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

func (o *outbox) take() []streamFrame {
	o.mu.Lock()
	defer o.mu.Unlock()
	frames := make([]streamFrame, 0, len(o.order))
	for _, typ := range o.order {
		frames = append(frames, o.pending[typ])
	}
	o.pending = make(map[string]streamFrame)
	o.order = o.order[:0]
	return frames
}

// ServeStream upgrades to a websocket and pushes an "events" frame (filtered
// by the same filter, range and q parameters as /api/events) on every change,
// a "monitoring" frame per live sample and an "error" frame per subscription
// failure. The subscriptions end when the client goes away.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS Upgrade Failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := newOutbox()
	onError := func(err error) {
		var se *store.SubscriptionError
		if !errors.As(err, &se) {
			se = store.NewSubscriptionError("", err)
		}
		out.put(streamFrame{Type: FrameError, Path: se.Path, Message: se.Message})
	}
	unsubEvents := h.live.SubscribeEvents(func(events []models.SeizureEvent) {
		filtered := query.Query(events, f, h.Now())
		out.put(streamFrame{Type: FrameEvents, Events: &filtered})
	}, onError)
	defer unsubEvents()
	unsubSample := h.live.SubscribeMonitoring(func(sample *models.MonitoringSample) {
		out.put(streamFrame{Type: FrameMonitoring, Sample: sample})
	}, onError)
	defer unsubSample()

	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("WS Read Error: %v", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-out.notify:
			for _, frame := range out.take() {
				conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if err := conn.WriteJSON(frame); err != nil {
					log.Printf("WS Write Error: %v", err)
					return
				}
			}
		}
	}
}
