package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/seance/backend/internal/model/event"
)

func inbound(t *testing.T, typ event.Type, data any) event.Inbound {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return event.Inbound{Event: typ, Data: raw}
}

func TestRender(t *testing.T) {
	p := printer{}

	tests := []struct {
		name string
		in   event.Inbound
		want string
	}{
		{name: "joined", in: inbound(t, event.UserJoined, event.UserInfo{ID: "u1", Name: "Ada"}), want: "* Ada joined"},
		{name: "left", in: inbound(t, event.UserLeft, event.UserInfo{ID: "u1", Name: "Ada"}), want: "* Ada left"},
		{
			name: "message",
			in:   inbound(t, event.MessageReceived, event.MessageReceivedData{UserName: "Ada", Message: "hello?"}),
			want: "Ada: hello?",
		},
		{name: "thinking", in: inbound(t, event.SpiritThinking, struct{}{}), want: "  the spirit stirs..."},
		{
			name: "response",
			in:   inbound(t, event.SpiritResponse, event.SpiritResponseData{Message: "I hear you", WordCount: 3}),
			want: "SPIRIT (3 words): I hear you",
		},
		{
			name: "error",
			in:   inbound(t, event.Error, event.ErrorData{Code: event.CodeEmptyMessage, Message: "Message cannot be empty"}),
			want: "! EMPTY_MESSAGE: Message cannot be empty",
		},
		{name: "unknown", in: inbound(t, event.Type("mystery"), map[string]int{"x": 1}), want: `? mystery {"x":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, p.render(tt.in))
		})
	}
}

func TestPaintDisabled(t *testing.T) {
	require.Equal(t, "====== hi ======", printer{}.header("hi"))
}
