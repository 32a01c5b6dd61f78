package speech

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// dialWithRetry 建立上游连接，握手失败时线性退避重试
func (c *Client) dialWithRetry(ctx context.Context, header http.Header) (*websocket.Conn, *http.Response, error) {
	attempts := max(c.cfg.DialRetries, 1)

	var lastErr error
	for i := range attempts {
		conn, resp, err := c.dialer.DialContext(ctx, c.endpoint, header)
		if err == nil {
			return conn, resp, nil
		}
		lastErr = err

		// 鉴权或参数类错误重试无意义
		if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, resp, fmt.Errorf("tts handshake rejected with status %d: %w", resp.StatusCode, err)
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * c.retryDelay):
		}
	}
	return nil, nil, fmt.Errorf("tts dial failed after %d attempts: %w", attempts, lastErr)
}
