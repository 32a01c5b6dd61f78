package speech

import (
	"errors"
	"strings"

	"github.com/samber/lo"
)

const (
	resourceDefault = "volc.service_type.10029"
	resourceMega    = "volc.megatts.default"
	resourceSeed    = "seed-tts-2.0"

	// DefaultVoice 是前端未指定 voice_id 时发送的音色名
	DefaultVoice = "en-US-ChristopherNeural"
)

// ErrResourceMismatch 表示音色与资源 ID 不匹配，可换资源重试
var ErrResourceMismatch = errors.New("resource id mismatched with speaker")

var seedHints = []string{
	"bigtts", "seed", "megatts", "uranus", "venus", "jupiter",
	"saturn", "neptune", "mercury", "pluto", "mars",
}

// voiceAliases 将前端音色名映射为火山引擎音色，空值表示使用配置的默认音色
var voiceAliases = map[string]string{
	"default":                 "",
	"en_default":              "en_male_adam_mars_bigtts",
	"en-us-christopherneural": "en_male_adam_mars_bigtts",
	"en-us-guyneural":         "en_male_adam_mars_bigtts",
	"en-us-jennyneural":       "en_female_amy_jupiter_bigtts",
	"en-us-arianeural":        "en_female_amy_jupiter_bigtts",
}

// resourceCandidates 依音色推断应尝试的资源 ID，按优先级排列
func resourceCandidates(voice string) []string {
	voice = strings.TrimSpace(voice)
	if strings.HasPrefix(voice, "S_") {
		return []string{resourceMega}
	}
	normalized := strings.ToLower(voice)
	if voice != "" && lo.SomeBy(seedHints, func(h string) bool { return strings.Contains(normalized, h) }) {
		return []string{resourceSeed, resourceDefault}
	}
	return []string{resourceDefault, resourceSeed}
}

// speakerCandidates 返回去重后的音色序列：请求音色在前，配置音色兜底
func speakerCandidates(requested, fallback string) []string {
	var candidates []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if mapped, ok := voiceAliases[strings.ToLower(s)]; ok {
			s = mapped
		}
		if s == "" {
			return
		}
		if lo.ContainsBy(candidates, func(c string) bool { return strings.EqualFold(c, s) }) {
			return
		}
		candidates = append(candidates, s)
	}
	add(requested)
	add(fallback)
	return candidates
}

func isResourceMismatch(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrResourceMismatch) ||
		strings.Contains(err.Error(), "resource ID is mismatched with speaker related resource")
}
