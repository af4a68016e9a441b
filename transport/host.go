package transport

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dungeonnet/config"
	"dungeonnet/protocol"
	"dungeonnet/session"
)

// ConnState 连接状态
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 局域网联机：允许所有来源
		return true
	},
}

// Host 主机连接管理器：监听端口、接受多个客户端、分发消息
type Host struct {
	cfg     *config.Config
	sess    *session.Session
	codec   *protocol.Codec
	log     *zap.SugaredLogger
	localID string // 主机本地玩家 ID

	reg     *registry
	ping    *pingTracker
	metrics *Metrics

	mu      sync.RWMutex
	clients map[string]*peerConn
	state   ConnState

	port     int
	localIP  string
	srv      *http.Server
	listener net.Listener

	// 游戏已开始时给后加入客户端的快照
	snapMu       sync.RWMutex
	hasGame      bool
	currentFloor int
	dungeonData  map[string]any

	stop     chan struct{}
	stopOnce sync.Once
}

// NewHost 创建主机管理器
func NewHost(cfg *config.Config, sess *session.Session, localPlayerID string, log *zap.SugaredLogger) *Host {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	h := &Host{
		cfg:     cfg,
		sess:    sess,
		codec:   protocol.NewCodec(cfg.MessageCompression, cfg.CompressionThreshold),
		log:     log,
		localID: localPlayerID,
		reg:     newRegistry(),
		ping:    newPingTracker(),
		metrics: &Metrics{},
		clients: make(map[string]*peerConn),
		stop:    make(chan struct{}),
	}
	h.registerInternalHandlers()
	return h
}

// FindAvailablePort 从 start 开始向后扫描可用端口，返回绑定好的监听器
func FindAvailablePort(start, maxAttempts int) (net.Listener, int, error) {
	for port := start; port < start+maxAttempts; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
		if err != nil {
			continue
		}
		return ln, port, nil
	}
	return nil, 0, fmt.Errorf("no available port in range %d-%d", start, start+maxAttempts-1)
}

// Start 启动监听；首选端口被占用时自动后移
func (h *Host) Start() error {
	h.mu.Lock()
	h.state = StateConnecting
	h.mu.Unlock()

	ln, port, err := FindAvailablePort(h.cfg.PreferredPort, h.cfg.PortScanAttempts)
	if err != nil {
		h.mu.Lock()
		h.state = StateDisconnected
		h.mu.Unlock()
		return fmt.Errorf("start host: %w", err)
	}
	if port != h.cfg.PreferredPort {
		h.log.Infof("port %d busy, moved to %d", h.cfg.PreferredPort, port)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", h.handleMetrics)
	mux.HandleFunc("/admin/config", h.handleAdminConfig)

	h.mu.Lock()
	h.listener = ln
	h.port = port
	h.localIP = localIP()
	h.srv = &http.Server{Handler: mux}
	h.state = StateConnected
	h.mu.Unlock()

	go func() {
		if err := h.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.log.Errorf("serve: %v", err)
		}
	}()
	go h.pingLoop()

	h.log.Infof("host listening on ws://0.0.0.0:%d/ws (lan: ws://%s:%d/ws)", port, h.localIP, port)
	return nil
}

// Port 实际监听端口
func (h *Host) Port() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.port
}

// LocalIP 局域网可达地址（展示给要加入的玩家）
func (h *Host) LocalIP() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.localIP
}

// State 当前连接状态
func (h *Host) State() ConnState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// SetGameSnapshot 记录当前楼层快照，供游戏开始后加入的客户端补齐状态
func (h *Host) SetGameSnapshot(floor int, dungeon map[string]any) {
	h.snapMu.Lock()
	defer h.snapMu.Unlock()
	h.hasGame = true
	h.currentFloor = floor
	h.dungeonData = dungeon
}

// RegisterHandler 注册消息处理函数
func (h *Host) RegisterHandler(t protocol.MessageType, fn Handler) {
	h.reg.register(t, fn)
}

// handleWS 单个客户端接入：握手 -> 注册 -> 接收循环
func (h *Host) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("upgrade error: %v", err)
		return
	}
	h.log.Infof("incoming connection from %s", ws.RemoteAddr())

	// 握手：限时等待 connect 消息
	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.HandshakeTimeout))
	_, data, err := ws.ReadMessage()
	if err != nil {
		h.log.Warnf("handshake timeout or read error: %v", err)
		_ = ws.Close()
		return
	}
	msg, err := h.codec.Decode(data)
	if err != nil || msg.Type != protocol.TypeConnect || msg.PlayerID == "" {
		h.rejectAndClose(ws, msg, "expected connect message")
		return
	}

	playerID := msg.PlayerID
	playerName, _ := msg.Data["player_name"].(string)

	// 名册登记（已存在视为重连）
	if h.sess.GetPlayer(playerID) == nil {
		p := session.NewPlayer(playerID, playerName)
		if !h.sess.AddPlayer(p) {
			h.rejectAndClose(ws, msg, "session full")
			return
		}
	} else {
		h.sess.GetPlayer(playerID).SetConnected(true)
	}

	cc := newPeerConn(ws)

	// 握手应答：接受 + 会话种子 +（游戏进行中时）地牢快照与玩家列表
	// 握手阶段直接写出，保证先于后续广播到达
	if err := h.writeHandshake(cc, playerID); err != nil {
		h.log.Errorf("handshake reply to %s failed: %v", playerID, err)
		h.sess.RemovePlayer(playerID)
		cc.Close()
		return
	}

	h.mu.Lock()
	if prev, ok := h.clients[playerID]; ok {
		prev.Close()
	}
	h.clients[playerID] = cc
	h.mu.Unlock()

	go cc.writePump()

	h.log.Infof("client %s (%s) accepted", playerID, playerName)
	h.reg.dispatch(msg, playerID, h.log)

	h.readLoop(cc, playerID)
}

func (h *Host) rejectAndClose(ws *websocket.Conn, msg *protocol.NetworkMessage, reason string) {
	pid := ""
	if msg != nil {
		pid = msg.PlayerID
	}
	h.log.Warnf("rejecting connection (%s): %s", pid, reason)
	if data, err := h.codec.Encode(protocol.ConnectionRejected(pid, reason)); err == nil {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = ws.WriteMessage(websocket.BinaryMessage, data)
	}
	_ = ws.Close()
}

func (h *Host) writeHandshake(cc *peerConn, playerID string) error {
	send := func(m *protocol.NetworkMessage) error {
		data, err := h.codec.Encode(m)
		if err != nil {
			return err
		}
		h.metrics.IncSent(len(data))
		return cc.writeDirect(data)
	}

	if err := send(protocol.ConnectionAccepted(playerID, h.sess.ID)); err != nil {
		return err
	}
	if err := send(protocol.SessionSeed(h.sess.SessionSeed(), h.sess.ID)); err != nil {
		return err
	}

	h.snapMu.RLock()
	hasGame, floor, dungeon := h.hasGame, h.currentFloor, h.dungeonData
	h.snapMu.RUnlock()
	if hasGame {
		seed := h.sess.DungeonSeedForFloor(floor)
		if err := send(protocol.DungeonData(dungeon, floor, seed)); err != nil {
			return err
		}
		if err := send(protocol.PlayerList(h.sess.Serialize())); err != nil {
			return err
		}
	}
	return nil
}

// readLoop 单连接接收循环；退出即视为断线并清理
func (h *Host) readLoop(cc *peerConn, playerID string) {
	_ = cc.ws.SetReadDeadline(time.Time{})
	for {
		_, data, err := cc.ws.ReadMessage()
		if err != nil {
			break
		}
		h.metrics.IncReceived(len(data))
		msg, derr := h.codec.Decode(data)
		if derr != nil {
			// 协议错误：丢弃消息，连接保留
			h.metrics.IncDecodeErrors()
			h.log.Warnf("drop malformed message from %s: %v", playerID, derr)
			continue
		}
		h.reg.dispatch(msg, playerID, h.log)
	}
	h.dropClient(cc, playerID)
}

// dropClient 断线清理：移出名册（触发主机选举）、通知余下客户端
// 只有退出的连接仍是该玩家的注册连接才算断线；
// 重连时被顶替的旧连接退出不得动名册和新连接
func (h *Host) dropClient(cc *peerConn, playerID string) {
	h.mu.Lock()
	cur, ok := h.clients[playerID]
	if !ok || cur != cc {
		h.mu.Unlock()
		cc.Close()
		return
	}
	delete(h.clients, playerID)
	h.mu.Unlock()
	cc.Close()
	h.ping.Forget(playerID)
	h.sess.RemovePlayer(playerID)
	h.Broadcast(protocol.PlayerLeft(playerID), "")
	// 本地派发断线事件，让游戏层清理该玩家的状态
	h.reg.dispatch(protocol.New(protocol.TypeDisconnect, playerID, nil), playerID, h.log)
	h.log.Infof("client %s disconnected", playerID)
}

// Send 发送给指定客户端；targetID 为空等同广播
// 对已关闭连接的发送只记日志不重试，断线检测路径会清掉僵尸对端
func (h *Host) Send(msg *protocol.NetworkMessage, targetID string) {
	if targetID == "" {
		h.Broadcast(msg, "")
		return
	}
	data, err := h.codec.Encode(msg)
	if err != nil {
		h.log.Errorf("encode %s: %v", msg.Type, err)
		return
	}
	h.mu.RLock()
	cc := h.clients[targetID]
	h.mu.RUnlock()
	if cc == nil || !cc.Enqueue(data) {
		h.metrics.IncSendDropped()
		h.log.Debugf("send %s to %s dropped", msg.Type, targetID)
		return
	}
	h.metrics.IncSent(len(data))
}

// Broadcast 广播给所有客户端，exclude 指定要跳过的玩家
func (h *Host) Broadcast(msg *protocol.NetworkMessage, exclude string) {
	data, err := h.codec.Encode(msg)
	if err != nil {
		h.log.Errorf("encode %s: %v", msg.Type, err)
		return
	}
	h.mu.RLock()
	conns := make(map[string]*peerConn, len(h.clients))
	for id, cc := range h.clients {
		conns[id] = cc
	}
	h.mu.RUnlock()

	for id, cc := range conns {
		if id == exclude {
			continue
		}
		if !cc.Enqueue(data) {
			h.metrics.IncSendDropped()
			h.log.Debugf("broadcast %s to %s dropped", msg.Type, id)
			continue
		}
		h.metrics.IncSent(len(data))
	}
}

// pingLoop 周期向所有客户端发延迟探测
func (h *Host) pingLoop() {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.mu.RLock()
			ids := make([]string, 0, len(h.clients))
			for id := range h.clients {
				ids = append(ids, id)
			}
			h.mu.RUnlock()
			for _, id := range ids {
				h.Send(protocol.PingRequest(h.localID), id)
			}
		}
	}
}

// registerInternalHandlers 挂内建的 ping/pong 处理
func (h *Host) registerInternalHandlers() {
	h.reg.register(protocol.TypePingRequest, func(msg *protocol.NetworkMessage, senderID string) {
		// 回显请求时间戳，对端据此算往返延迟
		h.Send(protocol.PongResponse(h.localID, msg.Timestamp), senderID)
	})
	h.reg.register(protocol.TypePongResponse, func(msg *protocol.NetworkMessage, senderID string) {
		ts, ok := msg.Data["timestamp"].(float64)
		if !ok {
			return
		}
		rtt := (protocol.Now() - ts) * 1000
		h.ping.Record(senderID, rtt)
		if p := h.sess.GetPlayer(senderID); p != nil {
			p.SetPing(h.ping.Average(senderID))
		}
	})
}

// AveragePing 指定玩家的平均往返延迟（毫秒）
func (h *Host) AveragePing(playerID string) float64 {
	return h.ping.Average(playerID)
}

// PingStatus 指定玩家的延迟色标
func (h *Host) PingStatus(playerID string) string {
	return h.ping.Status(playerID)
}

// MetricsSnapshot 指标只读副本
func (h *Host) MetricsSnapshot() map[string]any {
	return h.metrics.Snapshot()
}

// Stop 停止监听并断开所有客户端
func (h *Host) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
		h.mu.Lock()
		for _, cc := range h.clients {
			cc.Close()
		}
		h.clients = make(map[string]*peerConn)
		h.state = StateDisconnected
		srv := h.srv
		h.mu.Unlock()
		if srv != nil {
			_ = srv.Close()
		}
		h.log.Info("host stopped")
	})
}

// localIP 探测本机局域网地址；失败时退回 127.0.0.1
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}
