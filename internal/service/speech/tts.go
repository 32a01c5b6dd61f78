package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	model "github.com/zhouzirui/seance/backend/internal/model/speech"
)

var (
	ErrNotConfigured = errors.New("tts is not configured")
	ErrEmptyText     = errors.New("tts text is empty")
	ErrEmptyAudio    = errors.New("tts audio is empty")
	ErrUpstream      = errors.New("tts upstream error")
)

// 3000 为火山引擎的成功码
const upstreamOK = 3000

// Client 火山引擎单向流式 TTS 客户端，每次合成使用独立连接
type Client struct {
	cfg        model.Config
	endpoint   string
	dialer     *websocket.Dialer
	retryDelay time.Duration
	log        *slog.Logger
}

// NewClient 创建 TTS 客户端
func NewClient(cfg model.Config, log *slog.Logger) *Client {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = model.DefaultEndpoint
	}
	return &Client{
		cfg:        cfg,
		endpoint:   endpoint,
		dialer:     &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		retryDelay: time.Second,
		log:        log,
	}
}

// Enabled 报告凭证是否齐全
func (c *Client) Enabled() bool { return c.cfg.Enabled() }

type ttsRequest struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
		Additions   string         `json:"additions,omitempty"`
		Language    string         `json:"language,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format          string  `json:"format"`
	SampleRate      int     `json:"sample_rate"`
	EnableTimestamp bool    `json:"enable_timestamp"`
	SpeedRatio      float32 `json:"speed_ratio,omitempty"`
	VolumeRatio     float32 `json:"volume_ratio,omitempty"`
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
}

// Synthesize 将文本合成为 mp3 音频。
// 音色与资源 ID 不匹配时依次尝试其它资源与兜底音色。
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	speakers := speakerCandidates(voice, c.cfg.Voice)
	if len(speakers) == 0 {
		return nil, fmt.Errorf("%w: no voice configured", ErrNotConfigured)
	}

	var lastMismatch error
	for speakerIdx, speaker := range speakers {
		for resourceIdx, resourceID := range resourceCandidates(speaker) {
			audio, err := c.synthesizeWith(ctx, text, speaker, resourceID)
			if err == nil {
				if speakerIdx > 0 || resourceIdx > 0 {
					c.log.Info("tts.fallback_succeeded", "voice", speaker, "resource_id", resourceID)
				}
				return audio, nil
			}
			if !isResourceMismatch(err) {
				return nil, err
			}
			c.log.Warn("tts.resource_mismatch", "voice", speaker, "resource_id", resourceID, "error", err)
			lastMismatch = err
		}
	}
	return nil, lastMismatch
}

func (c *Client) synthesizeWith(ctx context.Context, text, speaker, resourceID string) ([]byte, error) {
	connectID := uuid.NewString()

	header := http.Header{}
	header.Set("X-Api-App-Key", strings.TrimSpace(c.cfg.AppID))
	header.Set("X-Api-Access-Key", strings.TrimSpace(c.cfg.AccessToken))
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := c.dialWithRetry(ctx, header)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if resp != nil {
		if logID := resp.Header.Get("X-Tt-Logid"); logID != "" {
			c.log.Debug("tts.connected", "logid", logID, "connect_id", connectID)
		}
	}

	payload, err := json.Marshal(c.buildRequest(text, speaker, connectID))
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, NewRequestFrame(payload, CompressionNone).Encode()); err != nil {
		return nil, fmt.Errorf("send tts request: %w", err)
	}

	var audio bytes.Buffer
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("read tts response: %w", err)
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			return nil, fmt.Errorf("decode tts frame: %w", err)
		}

		done, err := c.consume(frame, &audio)
		if err != nil {
			return nil, err
		}
		if done {
			if audio.Len() == 0 {
				return nil, ErrEmptyAudio
			}
			return audio.Bytes(), nil
		}
	}
}

// consume 处理一帧，返回合成是否结束
func (c *Client) consume(frame Frame, audio *bytes.Buffer) (bool, error) {
	body, err := frame.Body()
	if err != nil {
		return false, fmt.Errorf("decompress tts payload: %w", err)
	}

	switch frame.Type {
	case ErrorMessage:
		if strings.Contains(string(body), "resource ID is mismatched") {
			return false, fmt.Errorf("%w: %s", ErrResourceMismatch, body)
		}
		return false, fmt.Errorf("%w: code %d: %s", ErrUpstream, frame.ErrorCode, body)

	case AudioOnlyServerResponse:
		audio.Write(body)
		return frame.Last(), nil

	case FullServerResponse:
		var msg ttsServerMessage
		if len(body) > 0 {
			if err := json.Unmarshal(body, &msg); err != nil {
				c.log.Debug("tts.unparsable_payload", "error", err)
			} else {
				if msg.Code != 0 && msg.Code != upstreamOK {
					return false, fmt.Errorf("%w: code %d: %s", ErrUpstream, msg.Code, msg.Message)
				}
				if msg.Data != "" {
					chunk, err := base64.StdEncoding.DecodeString(msg.Data)
					if err != nil {
						return false, fmt.Errorf("decode base64 audio chunk: %w", err)
					}
					audio.Write(chunk)
				}
			}
		}
		if frame.hasEvent() && frame.Event == EventSessionFailed {
			return false, fmt.Errorf("%w: session failed: %s", ErrUpstream, body)
		}
		finished := frame.hasEvent() && frame.Event == EventSessionFinished
		return finished || frame.Last() || msg.Sequence < 0, nil

	default:
		c.log.Debug("tts.unexpected_frame", "type", frame.Type)
		return false, nil
	}
}

func (c *Client) buildRequest(text, speaker, uid string) ttsRequest {
	var req ttsRequest
	req.User.UID = uid
	req.ReqParams.Speaker = speaker
	req.ReqParams.Text = text
	req.ReqParams.AudioParams = ttsAudioParams{
		Format:          "mp3",
		SampleRate:      24000,
		EnableTimestamp: true,
	}
	if c.cfg.Speed > 0 && c.cfg.Speed != 1.0 {
		req.ReqParams.AudioParams.SpeedRatio = c.cfg.Speed
	}
	if c.cfg.Volume > 0 && c.cfg.Volume != 1.0 {
		req.ReqParams.AudioParams.VolumeRatio = c.cfg.Volume
	}
	req.ReqParams.Language = strings.TrimSpace(c.cfg.Language)
	req.ReqParams.Additions = `{"disable_markdown_filter":false}`
	return req
}
