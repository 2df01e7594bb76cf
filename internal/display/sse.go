package display

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/cocina/internal/feed"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

const (
	EventBoardUpdate = "board-update"

	DefaultKeepalive = 30 * time.Second
)

// UpdateSource fans feed updates out to subscribers.
type UpdateSource interface {
	Subscribe(subscriberID string) <-chan feed.Update
	Unsubscribe(subscriberID string)
}

type boardUpdate struct {
	Seq    uint64 `json:"seq"`
	Orders int    `json:"orders"`
	Error  bool   `json:"error"`
}

// SSEHandler streams board-update events to display screens. Screens react
// by fetching the board again.
type SSEHandler struct {
	source    UpdateSource
	logger    aqm.Logger
	keepalive time.Duration
}

func NewSSEHandler(source UpdateSource, logger aqm.Logger) *SSEHandler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &SSEHandler{
		source:    source,
		logger:    logger,
		keepalive: DefaultKeepalive,
	}
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	subscriberID := uuid.New().String()
	h.logger.Info("new SSE connection", "subscriber_id", subscriberID)

	updates := h.source.Subscribe(subscriberID)
	defer h.source.Unsubscribe(subscriberID)

	fmt.Fprintf(w, ": connected\n\n")
	fmt.Fprintf(w, "retry: 2000\n\n")
	flush(w)

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "subscriber_id", subscriberID)
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush(w)

		case u, ok := <-updates:
			if !ok {
				h.logger.Info("feed update channel closed", "subscriber_id", subscriberID)
				return
			}

			data, err := json.Marshal(boardUpdate{Seq: u.Seq, Orders: u.Orders, Error: u.Err != nil})
			if err != nil {
				h.logger.Error("failed to encode board update", "error", err)
				continue
			}
			sendSSEEvent(w, EventBoardUpdate, string(data))
		}
	}
}

// sendSSEEvent writes one event, prefixing every data line.
func sendSSEEvent(w http.ResponseWriter, eventType string, data string) {
	data = strings.TrimSpace(data)

	fmt.Fprintf(w, "event: %s\n", eventType)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprintf(w, "\n")

	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
