package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/aegis-momentum/internal/contracts"
)

const (
	wsWriteWait    = 10 * time.Second
	wsReadDeadline = 30 * time.Second
)

// StreamMessage is one frame sent over /ws/backtest
type StreamMessage struct {
	Type    string                     `json:"type"` // outcome, summary, error
	Outcome *contracts.BacktestOutcome `json:"outcome,omitempty"`
	Summary *contracts.BatchSummary    `json:"summary,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 같은 호스트의 대시보드만 허용
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

// StreamBatch runs one batch per connection. The client sends a BatchRequest;
// the server sends each outcome as it completes, then the summary, then closes.
// GET /ws/backtest
func (h *BacktestHandler) StreamBatch(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	var req BatchRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.writeFrame(conn, StreamMessage{Type: "error", Error: "invalid request: " + err.Error()})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.writeFrame(conn, StreamMessage{Type: "error", Error: err.Error()})
		return
	}

	// observer 호출은 직렬화되어 있어 동시 쓰기 없음
	writeFailed := false
	outcomes, summary := h.batches.RunBatchObserved(r.Context(), req.Tasks(), func(o contracts.BacktestOutcome) {
		if writeFailed {
			return
		}
		if err := h.writeFrame(conn, StreamMessage{Type: "outcome", Outcome: &o}); err != nil {
			writeFailed = true
		}
	})
	h.persist(r.Context(), summary, outcomes)

	if writeFailed {
		return
	}
	h.writeFrame(conn, StreamMessage{Type: "summary", Summary: &summary})
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "batch complete"),
		time.Now().Add(wsWriteWait))
}

func (h *BacktestHandler) writeFrame(conn *websocket.Conn, msg StreamMessage) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.WithError(err).Debug("WebSocket write failed")
		return err
	}
	return nil
}
