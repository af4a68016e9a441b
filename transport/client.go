package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dungeonnet/config"
	"dungeonnet/protocol"
)

// hostPeerID 客户端侧对端固定标识
const hostPeerID = "host"

// Client 客户端连接管理器：单连接指向主机
type Client struct {
	cfg     *config.Config
	codec   *protocol.Codec
	log     *zap.SugaredLogger
	localID string

	reg     *registry
	ping    *pingTracker
	metrics *Metrics

	mu        sync.RWMutex
	conn      *peerConn
	state     ConnState
	sessionID string

	stop     chan struct{}
	stopOnce sync.Once
}

// NewClient 创建客户端管理器
func NewClient(cfg *config.Config, localPlayerID string, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c := &Client{
		cfg:     cfg,
		codec:   protocol.NewCodec(cfg.MessageCompression, cfg.CompressionThreshold),
		log:     log,
		localID: localPlayerID,
		reg:     newRegistry(),
		ping:    newPingTracker(),
		metrics: &Metrics{},
		stop:    make(chan struct{}),
	}
	c.registerInternalHandlers()
	return c
}

// RegisterHandler 注册消息处理函数
func (c *Client) RegisterHandler(t protocol.MessageType, fn Handler) {
	c.reg.register(t, fn)
}

// Connect 连接主机并完成握手：发 connect，限时等 connection_accepted
func (c *Client) Connect(hostAddr string, port int, playerName string) error {
	c.mu.Lock()
	c.state = StateConnecting
	c.mu.Unlock()

	url := fmt.Sprintf("ws://%s:%d/ws", hostAddr, port)
	c.log.Infof("connecting to %s", url)

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		c.setDisconnected()
		return fmt.Errorf("dial %s: %w", url, err)
	}

	// 发送连接请求
	data, err := c.codec.Encode(protocol.Connect(c.localID, playerName))
	if err != nil {
		_ = ws.Close()
		c.setDisconnected()
		return fmt.Errorf("encode connect: %w", err)
	}
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		_ = ws.Close()
		c.setDisconnected()
		return fmt.Errorf("send connect: %w", err)
	}

	// 限时等待接受应答
	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
	_, reply, err := ws.ReadMessage()
	if err != nil {
		_ = ws.Close()
		c.setDisconnected()
		return fmt.Errorf("wait accept: %w", err)
	}
	msg, err := c.codec.Decode(reply)
	if err != nil {
		_ = ws.Close()
		c.setDisconnected()
		return fmt.Errorf("decode accept: %w", err)
	}
	if msg.Type == protocol.TypeConnectionRejected {
		reason, _ := msg.Data["reason"].(string)
		_ = ws.Close()
		c.setDisconnected()
		return fmt.Errorf("connection rejected: %s", reason)
	}
	if msg.Type != protocol.TypeConnectionAccepted {
		_ = ws.Close()
		c.setDisconnected()
		return fmt.Errorf("unexpected handshake reply: %s", msg.Type)
	}

	sessionID, _ := msg.Data["session_id"].(string)
	cc := newPeerConn(ws)

	c.mu.Lock()
	c.conn = cc
	c.sessionID = sessionID
	c.state = StateConnected
	c.mu.Unlock()

	go cc.writePump()
	go c.readLoop(cc)
	go c.pingLoop()

	c.log.Infof("connected to host, session %s", sessionID)
	c.reg.dispatch(msg, hostPeerID, c.log)
	return nil
}

// SessionID 握手时主机下发的会话 ID
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// State 当前连接状态
func (c *Client) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setDisconnected() {
	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()
}

// readLoop 后台接收循环；主机断开即退出
func (c *Client) readLoop(cc *peerConn) {
	_ = cc.ws.SetReadDeadline(time.Time{})
	for {
		_, data, err := cc.ws.ReadMessage()
		if err != nil {
			break
		}
		c.metrics.IncReceived(len(data))
		msg, derr := c.codec.Decode(data)
		if derr != nil {
			c.metrics.IncDecodeErrors()
			c.log.Warnf("drop malformed message from host: %v", derr)
			continue
		}
		c.reg.dispatch(msg, hostPeerID, c.log)
	}
	c.log.Warn("host connection closed")
	c.setDisconnected()
}

// Send 发送给主机；targetID 被忽略（客户端只能连主机）
func (c *Client) Send(msg *protocol.NetworkMessage, targetID string) {
	data, err := c.codec.Encode(msg)
	if err != nil {
		c.log.Errorf("encode %s: %v", msg.Type, err)
		return
	}
	c.mu.RLock()
	cc := c.conn
	c.mu.RUnlock()
	if cc == nil || !cc.Enqueue(data) {
		c.metrics.IncSendDropped()
		c.log.Debugf("send %s dropped (no connection)", msg.Type)
		return
	}
	c.metrics.IncSent(len(data))
}

// Broadcast 客户端无法直达其他客户端，广播等同发给主机转发
func (c *Client) Broadcast(msg *protocol.NetworkMessage, exclude string) {
	c.Send(msg, "")
}

// pingLoop 周期探测主机延迟
func (c *Client) pingLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if c.State() != StateConnected {
				return
			}
			c.Send(protocol.PingRequest(c.localID), "")
		}
	}
}

func (c *Client) registerInternalHandlers() {
	c.reg.register(protocol.TypePingRequest, func(msg *protocol.NetworkMessage, senderID string) {
		c.Send(protocol.PongResponse(c.localID, msg.Timestamp), "")
	})
	c.reg.register(protocol.TypePongResponse, func(msg *protocol.NetworkMessage, senderID string) {
		ts, ok := msg.Data["timestamp"].(float64)
		if !ok {
			return
		}
		c.ping.Record(hostPeerID, (protocol.Now()-ts)*1000)
	})
}

// AveragePing 主机方向的平均往返延迟（毫秒）
func (c *Client) AveragePing(playerID string) float64 {
	return c.ping.Average(hostPeerID)
}

// PingStatus 主机方向的延迟色标
func (c *Client) PingStatus(playerID string) string {
	return c.ping.Status(hostPeerID)
}

// MetricsSnapshot 指标只读副本
func (c *Client) MetricsSnapshot() map[string]any {
	return c.metrics.Snapshot()
}

// Close 主动断开
func (c *Client) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.state = StateDisconnected
		c.mu.Unlock()
		c.log.Info("client closed")
	})
}
