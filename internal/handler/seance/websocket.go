package seance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/seance/backend/internal/realtime"
	sessionservice "github.com/zhouzirui/seance/backend/internal/service/session"
	"github.com/zhouzirui/seance/backend/pkg/utils"
)

// SocketConfig 控制 WebSocket 连接的超时与限制。
type SocketConfig struct {
	PongWait     time.Duration
	WriteTimeout time.Duration
	ReadLimit    int64
	// RequireExistingSession refuses upgrades for ids the store does not know.
	RequireExistingSession bool
}

// DefaultSocketConfig mirrors the 60s pong wait used across handlers.
func DefaultSocketConfig() SocketConfig {
	return SocketConfig{
		PongWait:     60 * time.Second,
		WriteTimeout: 10 * time.Second,
		ReadLimit:    64 * 1024,
	}
}

func (c SocketConfig) pingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}

// WebSocketHandler 将 gorilla 连接接入消息管线。
type WebSocketHandler struct {
	pipeline *Pipeline
	sessions SessionStore
	cfg      SocketConfig
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewWebSocketHandler 创建 WebSocket 处理器。
func NewWebSocketHandler(pipeline *Pipeline, sessions SessionStore, cfg SocketConfig, log *slog.Logger) *WebSocketHandler {
	def := DefaultSocketConfig()
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}
	return &WebSocketHandler{
		pipeline: pipeline,
		sessions: sessions,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// RegisterRoutes 注册 WebSocket 路由。
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		utils.WriteError(w, http.StatusBadRequest, utils.CodeValidationError, "session id is required")
		return
	}

	if h.cfg.RequireExistingSession && h.sessions != nil {
		if _, err := h.sessions.GetSession(r.Context(), sessionID); err != nil {
			if errors.Is(err, sessionservice.ErrSessionNotFound) {
				utils.WriteError(w, http.StatusNotFound, utils.CodeSessionNotFound, "session not found")
				return
			}
			h.log.Error("websocket.session_lookup_failed", "session_id", sessionID, "error", err)
			utils.WriteError(w, http.StatusInternalServerError, utils.CodeInternalError, "failed to load session")
			return
		}
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket.upgrade_failed", "session_id", sessionID, "error", err)
		return
	}

	conn := realtime.NewWSConn(ws, h.cfg.WriteTimeout)
	h.log.Debug("websocket.connected", "session_id", sessionID, "conn_id", conn.ID(), "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ws.SetReadLimit(h.cfg.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	go h.pingLoop(ctx, conn)

	h.pipeline.Serve(ctx, sessionID, conn, &socketFrames{ws: ws, conn: conn, pongWait: h.cfg.PongWait})
}

// pingLoop 定期发送 ping，ctx 结束时关闭连接以解除阻塞的读取。
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *realtime.WSConn) {
	ticker := time.NewTicker(h.cfg.pingPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-conn.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				return
			}
		}
	}
}

// socketFrames adapts a gorilla connection to FrameReader.
type socketFrames struct {
	ws       *websocket.Conn
	conn     *realtime.WSConn
	pongWait time.Duration
}

func (f *socketFrames) ReadFrame(_ context.Context) ([]byte, error) {
	_, data, err := f.ws.ReadMessage()
	if err != nil {
		if f.endedNormally(err) {
			return nil, fmt.Errorf("%w: %v", ErrPeerClosed, err)
		}
		return nil, err
	}
	_ = f.ws.SetReadDeadline(time.Now().Add(f.pongWait))
	return data, nil
}

// endedNormally covers close frames, dropped peers, missed pongs and
// sockets closed locally after a failed send.
func (f *socketFrames) endedNormally(err error) bool {
	select {
	case <-f.conn.Done():
		return true
	default:
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
