package spirit

import "math/rand/v2"

// 逐字动画的节奏区间，单位毫秒。
const (
	minLetterDelay = 50
	maxLetterDelay = 500

	baseLetterDelay = 150
	letterVariance  = 100
)

// LetterTimings 为 text 的每个字符生成一个显灵板动画延迟。
// 返回切片长度等于字符（rune）数，每个值都落在 [50,500] 之内。
func LetterTimings(text string) []int {
	return letterTimings(text, rand.IntN)
}

// letterTimings uses intN(n) as a source of values in [0,n).
func letterTimings(text string, intN func(int) int) []int {
	between := func(lo, hi int) int {
		return lo + intN(hi-lo+1)
	}

	timings := make([]int, 0, len(text))
	for i, r := range []rune(text) {
		var delay int
		switch {
		case i == 0:
			delay = between(200, 300)
		case r == ' ':
			delay = between(200, 300)
		case r == '.' || r == '!' || r == '?':
			delay = between(250, 400)
		case r == ',' || r == '-' || r == ';' || r == ':':
			delay = between(180, 250)
		default:
			delay = baseLetterDelay + between(-letterVariance/2, letterVariance/2)
			delay = max(minLetterDelay, min(maxLetterDelay, delay))
		}
		timings = append(timings, delay)
	}
	return timings
}
