package spirit

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPrompt_Without_History(t *testing.T) {
	req := require.New(t)

	got := BuildPrompt(nil, "Ada", "Is anyone there?", 10, 30)

	req.Equal("CURRENT QUESTION:\nAda asks: Is anyone there?\n\nSPIRIT RESPONSE (max 30 words):", got)
}

func TestBuildPrompt_Keeps_Newest_History_In_Order(t *testing.T) {
	req := require.New(t)
	history := make([]string, 14)
	for i := range history {
		history[i] = fmt.Sprintf("entry-%02d", i)
	}

	got := BuildPrompt(history, "Bob", "Who are you?", 10, 30)

	req.True(strings.HasPrefix(got, "CONVERSATION HISTORY:\nUser: entry-04\nSpirit: entry-05\n"))
	req.NotContains(got, "entry-03")
	req.Contains(got, "Spirit: entry-13\n\nCURRENT QUESTION:\nBob asks: Who are you?")
	req.Less(strings.Index(got, "entry-04"), strings.Index(got, "entry-13"))
}

func TestSystemInstruction_States_Word_Limit(t *testing.T) {
	require.Contains(t, SystemInstruction(), "Maximum 30 words per response")
}
