package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"portfolio-dashboard/internal/backend"
	"portfolio-dashboard/internal/poller"
	"portfolio-dashboard/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Stream message types
const (
	StreamSnapshot = "snapshot"
	StreamError    = "error"
)

// StreamMessage is one frame pushed to the dashboard
type StreamMessage struct {
	Type      string         `json:"type"`
	Data      *StreamPayload `json:"data,omitempty"`
	Error     *ErrorDetail   `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`

	// final frames are followed by a close
	final bool
}

// StreamPayload carries the widgets that change on every poll
type StreamPayload struct {
	Notifications *services.NotificationFeed `json:"notifications"`
	Activity      *services.ActivityView     `json:"activity"`
}

// StreamHandler pushes notifications and recent activity over a WebSocket
// on every poll. The poll stops as soon as the socket goes away.
type StreamHandler struct {
	scope               *sessionScope
	dashboardService    DashboardServiceInterface
	notificationService NotificationServiceInterface
	interval            time.Duration
	upgrader            websocket.Upgrader
	streams             StreamObserver
	polls               poller.Observer
	logger              zerolog.Logger
}

// NewStreamHandler creates a new stream handler. streams and polls may be nil.
func NewStreamHandler(scope *sessionScope, dashboardService DashboardServiceInterface, notificationService NotificationServiceInterface, interval time.Duration, allowedOrigins []string, streams StreamObserver, polls poller.Observer, logger zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		scope:               scope,
		dashboardService:    dashboardService,
		notificationService: notificationService,
		interval:            interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		streams: streams,
		polls:   polls,
		logger:  logger.With().Str("component", "stream").Logger(),
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// Stream upgrades the request and polls until the client disconnects
// @Summary Dashboard push stream
// @Tags Stream
// @Security BearerAuth
// @Param token query string false "Bearer token for browsers"
// @Router /ws/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	caller, account, ok := h.scope.resolve(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	if h.streams != nil {
		h.streams.StreamOpened()
		defer h.streams.StreamClosed()
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	out := make(chan StreamMessage, 1)
	var opts []poller.Option
	if h.polls != nil {
		opts = append(opts, poller.WithObserver(h.polls))
	}
	p := poller.New("stream", h.interval, func(ctx context.Context) error {
		msg, err := h.snapshot(ctx, caller, account)
		poller.Deliver(ctx, out, msg)
		return err
	}, h.logger, opts...)

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		_ = p.Run(ctx)
	}()
	go h.readPump(conn, cancel)

	h.logger.Debug().Str("owner", caller.Owner).Msg("stream opened")
	h.writePump(ctx, conn, out)

	cancel()
	<-pollDone
	h.logger.Debug().Str("owner", caller.Owner).Int64("polls", p.Runs()).Int64("skipped", p.Skipped()).Msg("stream closed")
}

// snapshot builds the next frame. Errors are reported to the client as an
// error frame and returned to the poller.
func (h *StreamHandler) snapshot(ctx context.Context, caller services.Caller, account services.AccountReader) (StreamMessage, error) {
	feed, err := h.notificationService.List(ctx, caller, account)
	if err == nil {
		var activity *services.ActivityView
		activity, err = h.dashboardService.Activity(ctx, caller.Owner, account)
		if err == nil {
			return StreamMessage{
				Type:      StreamSnapshot,
				Data:      &StreamPayload{Notifications: feed, Activity: activity},
				Timestamp: time.Now().UTC(),
			}, nil
		}
	}

	msg := StreamMessage{
		Type:      StreamError,
		Error:     &ErrorDetail{Code: "STREAM_REFRESH_FAILED", Message: "Failed to refresh dashboard", Details: err.Error()},
		Timestamp: time.Now().UTC(),
	}
	if errors.Is(err, backend.ErrUnauthorized) {
		msg.Error = &ErrorDetail{Code: "AUTH_EXPIRED", Message: "Session has expired, please sign in again"}
		msg.final = true
	}
	return msg, err
}

// readPump discards client frames and cancels the stream when the socket closes
func (h *StreamHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
	}
}

func (h *StreamHandler) writePump(ctx context.Context, conn *websocket.Conn, out <-chan StreamMessage) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msg := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
			if msg.final {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session expired"), time.Now().Add(writeWait))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
