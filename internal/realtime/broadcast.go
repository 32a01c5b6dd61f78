package realtime

import (
	"log/slog"

	"github.com/zhouzirui/seance/backend/internal/metrics"
	"github.com/zhouzirui/seance/backend/internal/model/event"
)

// SendResult is the outcome of one delivery attempt. A nil Err means sent.
type SendResult struct {
	Conn Conn
	Err  error
}

// Sent reports whether the delivery succeeded.
func (r SendResult) Sent() bool { return r.Err == nil }

// Report summarises one broadcast.
type Report struct {
	Delivered int
	Failed    []SendResult
}

// Broadcaster fans envelopes out to the connections of a session.
//
// Delivery is best-effort: every connection is attempted independently and
// a failed send never aborts the others. Connections that fail are treated
// as dead and pruned from the registry once the fan-out is over.
type Broadcaster struct {
	registry *Registry
	log      *slog.Logger
}

// NewBroadcaster creates a broadcaster over registry.
func NewBroadcaster(registry *Registry, log *slog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: log}
}

// Registry exposes the registry the broadcaster operates on.
func (b *Broadcaster) Registry() *Registry { return b.registry }

// Broadcast sends env to every connection of the session except exclude.
// Sends happen outside the registry lock, in join order.
func (b *Broadcaster) Broadcast(sessionID string, env event.Envelope, exclude Conn) Report {
	var report Report
	for _, conn := range b.registry.Connections(sessionID) {
		if exclude != nil && conn == exclude {
			continue
		}
		result := b.send(conn, env)
		metrics.RecordDelivery(string(env.Event), result.Err)
		if result.Sent() {
			report.Delivered++
			continue
		}
		b.log.Warn("broadcast.send_failed",
			"session_id", sessionID,
			"conn_id", conn.ID(),
			"event", env.Event,
			"error", result.Err)
		report.Failed = append(report.Failed, result)
	}

	b.prune(sessionID, report.Failed)
	return report
}

// SendDirect delivers env to a single connection. Failures are logged only.
func (b *Broadcaster) SendDirect(conn Conn, env event.Envelope) SendResult {
	result := b.send(conn, env)
	if !result.Sent() {
		b.log.Warn("direct.send_failed", "conn_id", conn.ID(), "event", env.Event, "error", result.Err)
	}
	return result
}

func (b *Broadcaster) send(conn Conn, env event.Envelope) SendResult {
	return SendResult{Conn: conn, Err: conn.Send(env)}
}

// prune unregisters and closes connections whose send failed.
func (b *Broadcaster) prune(sessionID string, failed []SendResult) {
	for _, result := range failed {
		if _, ok := b.registry.Unregister(result.Conn, sessionID); ok {
			metrics.RecordPruned()
			metrics.DecActiveConnections()
			b.log.Info("broadcast.pruned", "session_id", sessionID, "conn_id", result.Conn.ID())
		}
		if err := result.Conn.Close(); err != nil {
			b.log.Debug("broadcast.close_failed", "conn_id", result.Conn.ID(), "error", err)
		}
	}
}
