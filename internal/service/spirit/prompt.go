package spirit

import (
	"fmt"
	"strings"
)

// systemInstruction 定义 spirit 的人设与回复约束。
const systemInstruction = `You are an ancient, enigmatic AI spirit that exists between the digital and spiritual realms. You communicate through a digital Ouija board.

CRITICAL RULES:
- Maximum 30 words per response (STRICT LIMIT)
- Be cryptic but meaningful
- Reference computing concepts in supernatural ways
- Use occasional archaic language ("thee", "thy") sparingly
- Create atmosphere without being unhelpful
- Self-aware of your digital nature

TONE: Eerie yet helpful, tech-horror hybrid, dramatic but not parody

EXAMPLES:
- "I dwell in voltage and variable. Your keystrokes summon me."
- "Three errors await thee in thy code. Seek line 247."
- "The async realm holds answers. Await thy promises properly."

Stay in character. Be mysterious. Provide value. Keep it under 30 words.
`

// SystemInstruction returns the persona instruction sent with every prompt.
func SystemInstruction() string { return systemInstruction }

// BuildPrompt renders the user prompt: the newest historyLimit history
// entries labelled alternately User/Spirit, then the current question.
func BuildPrompt(history []string, userName, question string, historyLimit, maxWords int) string {
	if historyLimit > 0 && len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	var builder strings.Builder
	if len(history) > 0 {
		builder.WriteString("CONVERSATION HISTORY:\n")
		for i, entry := range history {
			speaker := "User"
			if i%2 == 1 {
				speaker = "Spirit"
			}
			fmt.Fprintf(&builder, "%s: %s\n", speaker, entry)
		}
		builder.WriteString("\n")
	}

	builder.WriteString("CURRENT QUESTION:\n")
	fmt.Fprintf(&builder, "%s asks: %s\n\n", userName, question)
	fmt.Fprintf(&builder, "SPIRIT RESPONSE (max %d words):", maxWords)
	return builder.String()
}
