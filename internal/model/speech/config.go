package speech

import (
	"strings"
	"time"
)

// DefaultEndpoint 火山引擎单向流式 TTS 地址
const DefaultEndpoint = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"

// Config 语音合成配置
type Config struct {
	AppID       string        // 火山引擎 APP ID
	AccessToken string        // 火山引擎 Access Token
	Voice       string        // 默认音色
	Speed       float32       // 语速倍率 0.5-2.0，0 表示服务端默认
	Volume      float32       // 音量倍率，0 表示服务端默认
	Language    string        // 可选的语种提示
	Endpoint    string        // 为空时使用 DefaultEndpoint
	Timeout     time.Duration // 单次合成的整体超时
	DialRetries int           // 握手失败时的最大尝试次数
}

// Enabled 报告凭证是否齐全
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.AppID) != "" && strings.TrimSpace(c.AccessToken) != ""
}
