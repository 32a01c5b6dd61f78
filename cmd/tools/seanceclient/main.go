package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"github.com/zhouzirui/seance/backend/internal/config"
	"github.com/zhouzirui/seance/backend/internal/model/event"
	"github.com/zhouzirui/seance/backend/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	mode := flag.String("mode", "join", "运行模式: join 加入会话, tts 直接调用语音合成")
	server := flag.String("server", "ws://localhost:8080", "后端 WebSocket 地址")
	session := flag.String("session", "", "会话 ID，留空则自动生成")
	name := flag.String("name", "Anonymous", "显示名称")
	user := flag.String("user", "", "用户 ID，留空则自动生成")
	text := flag.String("text", "", "TTS 输入文本")
	voice := flag.String("voice", speech.DefaultVoice, "TTS 声音 ID")
	outputPath := flag.String("out", "", "TTS 输出音频文件路径 (默认 speech-<ts>.mp3)")
	timeout := flag.Duration("timeout", 45*time.Second, "TTS 请求超时时间")
	noColor := flag.Bool("no-color", false, "关闭彩色输出")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := printer{colours: !*noColor}

	switch *mode {
	case "join":
		sessionID := *session
		if sessionID == "" {
			sessionID = fmt.Sprintf("manual-%d", time.Now().UnixNano())
		}
		userID := *user
		if userID == "" {
			userID = fmt.Sprintf("cli-%d", time.Now().UnixNano())
		}
		if err := runJoin(ctx, p, *server, sessionID, event.Identity{UserID: userID, Name: *name}); err != nil {
			log.Fatalf("会话结束: %v", err)
		}
	case "tts":
		if err := runTTS(ctx, *text, *voice, *outputPath, *timeout); err != nil {
			log.Fatalf("TTS 失败: %v", err)
		}
	default:
		flag.Usage()
		log.Fatal("请通过 -mode=join 或 -mode=tts 指定运行模式")
	}
}

// runJoin 连接会话，打印收到的事件，并把标准输入的每一行作为 send_message 发送
func runJoin(ctx context.Context, p printer, server, sessionID string, identity event.Identity) error {
	endpoint, err := url.JoinPath(server, "ws", url.PathEscape(sessionID))
	if err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(identity); err != nil {
		return fmt.Errorf("send identity: %w", err)
	}
	fmt.Println(p.header(fmt.Sprintf("joined %s as %s", sessionID, identity.Name)))

	readErr := make(chan error, 1)
	go func() {
		for {
			var env event.Inbound
			if err := conn.ReadJSON(&env); err != nil {
				readErr <- err
				return
			}
			fmt.Println(p.render(env))
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			return nil
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		case line, ok := <-lines:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "eof"))
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			msg := event.NewEnvelope(event.SendMessage, event.SendMessageData{Message: line, UserName: identity.Name})
			if err := conn.WriteJSON(msg); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}
}

// runTTS 绕过 HTTP 层直接验证火山引擎凭证与音色
func runTTS(ctx context.Context, text, voice, outputPath string, timeout time.Duration) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("配置加载失败: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("请通过 -text 提供要合成的文本")
	}

	client := speech.NewClient(cfg.Speech.Config, logs.GetLoggerFromString(cfg.Server.LogLevel))
	if !client.Enabled() {
		return fmt.Errorf("语音服务未启用，请先在环境变量中配置 SPEECH_APP_ID 与 SPEECH_ACCESS_TOKEN")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	audio, err := client.Synthesize(ctx, text, voice)
	if err != nil {
		return err
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("speech-%d.mp3", time.Now().Unix())
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
		return fmt.Errorf("写入音频失败: %w", err)
	}

	log.Printf("[TTS] 完成: %d bytes -> %s (%s)", len(audio), outputPath, time.Since(start).Round(time.Millisecond))
	return nil
}

// printer 将事件渲染为单行文本
type printer struct {
	colours bool
}

func (p printer) paint(s string, opts ...color.Color) string {
	if !p.colours {
		return s
	}
	return color.New(opts...).Render(s)
}

func (p printer) header(s string) string {
	return p.paint(fmt.Sprintf("====== %s ======", s), color.BgBlack, color.FgGreen)
}

func (p printer) render(env event.Inbound) string {
	switch env.Event {
	case event.UserJoined, event.UserLeft:
		var data event.UserInfo
		_ = json.Unmarshal(env.Data, &data)
		verb := "joined"
		if env.Event == event.UserLeft {
			verb = "left"
		}
		return p.paint(fmt.Sprintf("* %s %s", data.Name, verb), color.FgGray)

	case event.MessageReceived:
		var data event.MessageReceivedData
		_ = json.Unmarshal(env.Data, &data)
		return fmt.Sprintf("%s: %s", p.paint(data.UserName, color.FgCyan), data.Message)

	case event.SpiritThinking:
		return p.paint("  the spirit stirs...", color.FgMagenta)

	case event.SpiritResponse:
		var data event.SpiritResponseData
		_ = json.Unmarshal(env.Data, &data)
		return p.paint(fmt.Sprintf("SPIRIT (%d words): %s", data.WordCount, data.Message), color.FgMagenta, color.OpBold)

	case event.Error:
		var data event.ErrorData
		_ = json.Unmarshal(env.Data, &data)
		return p.paint(fmt.Sprintf("! %s: %s", data.Code, data.Message), color.FgRed)

	default:
		return p.paint(fmt.Sprintf("? %s %s", env.Event, string(env.Data)), color.FgYellow)
	}
}
