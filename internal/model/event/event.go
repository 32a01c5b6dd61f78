package event

import (
	"encoding/json"
	"time"
)

// Type 标识 WebSocket 信封中的事件名。
type Type string

const (
	// Client → Server
	SendMessage Type = "send_message"

	// Server → Client
	UserJoined      Type = "user_joined"
	UserLeft        Type = "user_left"
	MessageReceived Type = "message_received"
	SpiritThinking  Type = "spirit_thinking"
	SpiritResponse  Type = "spirit_response"
	Error           Type = "error"
)

// ErrorCode 是 error 事件携带的机器可读错误码。
type ErrorCode string

const (
	CodeEmptyMessage   ErrorCode = "EMPTY_MESSAGE"
	CodeMessageTooLong ErrorCode = "MESSAGE_TOO_LONG"
	CodeSpiritError    ErrorCode = "SPIRIT_ERROR"
	CodeInternalError  ErrorCode = "INTERNAL_ERROR"
	CodeSessionFull    ErrorCode = "SESSION_FULL"
)

// Envelope is the JSON frame exchanged in both directions.
type Envelope struct {
	Event     Type   `json:"event"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// Inbound is a client frame whose data is decoded once the event is known.
type Inbound struct {
	Event Type            `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// UserInfo describes a participant attached to one connection.
type UserInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

// Identity 是客户端建立连接后发送的第一帧。
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// SendMessageData is the payload of a send_message event.
type SendMessageData struct {
	Message  string `json:"message"`
	UserName string `json:"user_name"`
}

// MessageReceivedData is broadcast for every accepted user message.
type MessageReceivedData struct {
	UserName  string `json:"user_name"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// SpiritResponseData carries the post-processed spirit answer.
type SpiritResponseData struct {
	Message       string  `json:"message"`
	WordCount     int     `json:"word_count"`
	LetterTimings []int   `json:"letter_timings"`
	AudioURL      *string `json:"audio_url"`
	Timestamp     string  `json:"timestamp"`
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Timestamp formats t the way every envelope does.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewEnvelope stamps an outgoing event with the current time.
func NewEnvelope(event Type, data any) Envelope {
	if data == nil {
		data = struct{}{}
	}
	return Envelope{Event: event, Data: data, Timestamp: Timestamp(time.Now())}
}

// NewError builds an error envelope.
func NewError(code ErrorCode, message string) Envelope {
	return NewEnvelope(Error, ErrorData{Code: code, Message: message})
}
