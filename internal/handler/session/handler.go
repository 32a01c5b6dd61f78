package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/zhouzirui/seance/backend/internal/model/event"
	model "github.com/zhouzirui/seance/backend/internal/model/session"
	sessionService "github.com/zhouzirui/seance/backend/internal/service/session"
	"github.com/zhouzirui/seance/backend/pkg/utils"
)

// Service 是处理器依赖的会话服务能力
type Service interface {
	CreateSession(ctx context.Context, name string, maxUsers int) (model.Session, error)
	GetSession(ctx context.Context, sessionID string) (model.Session, error)
}

// Presence 提供会话在线用户快照
type Presence interface {
	ListSessionUsers(sessionID string) []event.UserInfo
}

// Handler 会话 REST 接口
type Handler struct {
	sessions Service
	presence Presence
}

// New 创建会话处理器
func New(sessions Service, presence Presence) *Handler {
	return &Handler{sessions: sessions, presence: presence}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreate)
	r.Get("/sessions/{sessionID}", h.handleGet)
	r.Get("/sessions/{sessionID}/users", h.handleUsers)
}

type createRequest struct {
	Name     string `json:"name"`
	MaxUsers int    `json:"max_users"`
}

type usersResponse struct {
	SessionID string           `json:"session_id"`
	Users     []event.UserInfo `json:"users"`
	Count     int              `json:"count"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.CodeValidationError, "invalid request body")
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), payload.Name, payload.MaxUsers)
	if err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			utils.WriteErrorDetails(w, http.StatusBadRequest, utils.CodeValidationError,
				"invalid session parameters", fieldErrors(validationErrs))
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, utils.CodeInternalError, "failed to create session")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, session)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.WriteSuccess(w, http.StatusOK, session)
}

// handleUsers 返回当前连接在线的用户，不要求会话已持久化
func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	users := h.presence.ListSessionUsers(sessionID)
	utils.WriteSuccess(w, http.StatusOK, usersResponse{
		SessionID: sessionID,
		Users:     users,
		Count:     len(users),
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (model.Session, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.sessions.GetSession(r.Context(), sessionID)
	switch {
	case err == nil:
		return session, true
	case errors.Is(err, sessionService.ErrSessionNotFound):
		utils.WriteError(w, http.StatusNotFound, utils.CodeSessionNotFound, "session not found")
	default:
		utils.WriteError(w, http.StatusInternalServerError, utils.CodeInternalError, "failed to load session")
	}
	return model.Session{}, false
}

// fieldErrors 将校验错误转换为 {field: tag}
func fieldErrors(errs validator.ValidationErrors) map[string]any {
	return lo.SliceToMap(errs, func(fe validator.FieldError) (string, any) {
		return jsonField(fe.Field()), fe.Tag()
	})
}

func jsonField(field string) string {
	switch field {
	case "Name":
		return "name"
	case "MaxUsers":
		return "max_users"
	default:
		return field
	}
}
