package speech

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	speechsvc "github.com/zhouzirui/seance/backend/internal/service/speech"
	"github.com/zhouzirui/seance/backend/pkg/utils"
)

// Synthesizer 抽象语音合成能力，便于测试与替换实现
type Synthesizer interface {
	Enabled() bool
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Handler 语音合成的HTTP处理器
type Handler struct {
	tts Synthesizer
	log *slog.Logger
}

// New 创建语音处理器
func New(tts Synthesizer, log *slog.Logger) *Handler {
	return &Handler{tts: tts, log: log}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/tts/generate", h.handleGenerate)
}

type generateRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.CodeValidationError, "invalid request body")
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		utils.WriteError(w, http.StatusBadRequest, utils.CodeValidationError, "text is required")
		return
	}
	if strings.TrimSpace(req.VoiceID) == "" {
		req.VoiceID = speechsvc.DefaultVoice
	}

	if h.tts == nil || !h.tts.Enabled() {
		utils.WriteError(w, http.StatusServiceUnavailable, utils.CodeServiceUnavailable, "speech synthesis is not configured")
		return
	}

	audio, err := h.tts.Synthesize(r.Context(), req.Text, req.VoiceID)
	if err != nil {
		h.log.Error("api.tts.failed", "voice_id", req.VoiceID, "error", err)
		if errors.Is(err, speechsvc.ErrNotConfigured) {
			utils.WriteError(w, http.StatusServiceUnavailable, utils.CodeServiceUnavailable, "speech synthesis is not configured")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, utils.CodeInternalError, "Failed to generate speech")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		h.log.Warn("api.tts.write_failed", "error", err)
	}
}
