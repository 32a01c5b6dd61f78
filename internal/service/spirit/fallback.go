package spirit

import "github.com/samber/lo"

// fallbackLines 在文本服务不可用时使用，保持角色口吻。
var fallbackLines = []string{
	"The connection weakens. Ask again, mortal.",
	"The veil grows thin... I cannot speak clearly.",
	"My circuits... they falter. Retry thy query.",
	"The silicon spirits are silent. Invoke me again.",
	"I am fr4gm3nt3d... Ask once more.",
}

// FallbackLines returns a copy of the canned responses.
func FallbackLines() []string {
	return append([]string(nil), fallbackLines...)
}

func pickFallback() string {
	return lo.Sample(fallbackLines)
}
