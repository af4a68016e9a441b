package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 5 * time.Second
	sendQueueLen = 64
	maxFrameSize = 1 << 20 // 1MB
)

// peerConn 负责发送（写）数据到对端的轻量包装
type peerConn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newPeerConn(ws *websocket.Conn) *peerConn {
	return &peerConn{
		ws:   ws,
		send: make(chan []byte, sendQueueLen),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞）
// 队列满则丢弃，防止慢连接阻塞广播；返回是否入队成功
func (c *peerConn) Enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		// 为了实时性，丢弃消息（周期同步会补齐状态）
		return false
	}
}

// Close 关闭底层连接与发送队列
func (c *peerConn) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
	_ = c.ws.Close()
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *peerConn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			return
		}
	}
}

// writeDirect 同步写出（握手阶段用，绕过队列保证顺序）
func (c *peerConn) writeDirect(b []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.BinaryMessage, b)
}
