package transport

import "sync/atomic"

// Metrics 记录连接运行期的关键指标（用于监控与调试）
type Metrics struct {
	MessagesSent     int64 // 发出的消息数
	MessagesReceived int64 // 收到的消息数
	BytesSent        int64 // 发出的字节数
	BytesReceived    int64 // 收到的字节数
	SendDropped      int64 // 因队列满或连接关闭被丢弃的消息数
	DecodeErrors     int64 // 解码失败的消息数
	CompressedSent   int64 // 压缩发送的消息数
}

func (m *Metrics) IncSent(bytes int) {
	atomic.AddInt64(&m.MessagesSent, 1)
	atomic.AddInt64(&m.BytesSent, int64(bytes))
}

func (m *Metrics) IncReceived(bytes int) {
	atomic.AddInt64(&m.MessagesReceived, 1)
	atomic.AddInt64(&m.BytesReceived, int64(bytes))
}

func (m *Metrics) IncSendDropped()    { atomic.AddInt64(&m.SendDropped, 1) }
func (m *Metrics) IncDecodeErrors()   { atomic.AddInt64(&m.DecodeErrors, 1) }
func (m *Metrics) IncCompressedSent() { atomic.AddInt64(&m.CompressedSent, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"messages_sent":     atomic.LoadInt64(&m.MessagesSent),
		"messages_received": atomic.LoadInt64(&m.MessagesReceived),
		"bytes_sent":        atomic.LoadInt64(&m.BytesSent),
		"bytes_received":    atomic.LoadInt64(&m.BytesReceived),
		"send_dropped":      atomic.LoadInt64(&m.SendDropped),
		"decode_errors":     atomic.LoadInt64(&m.DecodeErrors),
		"compressed_sent":   atomic.LoadInt64(&m.CompressedSent),
	}
}
