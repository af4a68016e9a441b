package netsync

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"dungeonnet/config"
	"dungeonnet/game"
	"dungeonnet/protocol"
	"dungeonnet/session"
)

// Movement 移动同步：即时转发 + 周期性权威快照
// 主机是位置权威：客户端请求经主机结算后再广播；
// 快照兜底纠正转发丢失造成的偏差
type Movement struct {
	sess *session.Session
	bus  Bus
	mode *game.Mode
	cfg  *config.Config
	log  *zap.SugaredLogger

	mu       sync.Mutex
	lastSync time.Time
}

// NewMovement 创建移动同步器并注册消息处理器
func NewMovement(sess *session.Session, bus Bus, mode *game.Mode, cfg *config.Config, log *zap.SugaredLogger) *Movement {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	m := &Movement{sess: sess, bus: bus, mode: mode, cfg: cfg, log: log}
	bus.RegisterHandler(protocol.TypePlayerMove, m.handlePlayerMove)
	if mode.IsHost {
		bus.RegisterHandler(protocol.TypeMoveRequest, m.handleMoveRequest)
	} else {
		bus.RegisterHandler(protocol.TypePositionSync, m.handlePositionSync)
	}
	return m
}

// BroadcastMove 本地玩家移动后向其他端通告新位置
func (m *Movement) BroadcastMove(x, y int) {
	pid := m.mode.LocalPlayerID
	if p := m.sess.GetPlayer(pid); p != nil {
		p.UpdatePosition(x, y)
	}
	m.bus.Broadcast(protocol.PlayerMove(pid, x, y), "")
}

// RequestMove 客户端请求主机权威结算一次相对移动
// 主机本机直接结算
func (m *Movement) RequestMove(dx, dy int) {
	pid := m.mode.LocalPlayerID
	if m.mode.IsHost {
		m.resolveMove(pid, dx, dy)
		return
	}
	m.bus.Send(protocol.MoveRequest(pid, dx, dy), "")
}

// handleMoveRequest 主机结算客户端的移动请求
func (m *Movement) handleMoveRequest(msg *protocol.NetworkMessage, senderID string) {
	pid := msg.PlayerID
	if pid == "" {
		pid = senderID
	}
	dx := intField(msg.Data, "dx")
	dy := intField(msg.Data, "dy")
	m.resolveMove(pid, dx, dy)
}

// resolveMove 主机侧位移结算并广播结果
// 广播包含请求方本身，其本地回声抑制由对方负责
func (m *Movement) resolveMove(pid string, dx, dy int) {
	p := m.sess.GetPlayer(pid)
	if p == nil {
		m.log.Warnf("move request from unknown player %s", pid)
		return
	}
	x, y := p.Move(dx, dy)
	m.bus.Broadcast(protocol.PlayerMove(pid, x, y), "")
}

// handlePlayerMove 应用他人的位置变更；主机同时转发给其余客户端
func (m *Movement) handlePlayerMove(msg *protocol.NetworkMessage, senderID string) {
	pid := msg.PlayerID
	if pid == "" {
		return
	}
	// 本地回声抑制：自己的移动不重复应用
	if m.mode.IsLocal(pid) {
		return
	}
	p := m.sess.GetPlayer(pid)
	if p == nil {
		m.log.Warnf("player_move for unknown player %s", pid)
		return
	}
	p.UpdatePosition(intField(msg.Data, "x"), intField(msg.Data, "y"))

	// 主机继续转发给除发送方外的所有客户端
	if m.mode.IsHost && senderID != "" {
		m.bus.Broadcast(msg, senderID)
	}
}

// handlePositionSync 客户端应用主机的周期性权威快照，跳过自己
func (m *Movement) handlePositionSync(msg *protocol.NetworkMessage, senderID string) {
	raw, ok := msg.Data["positions"].(map[string]any)
	if !ok {
		return
	}
	for pid, v := range raw {
		if m.mode.IsLocal(pid) {
			continue
		}
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		p := m.sess.GetPlayer(pid)
		if p == nil {
			m.log.Debugf("position_sync skips unknown player %s", pid)
			continue
		}
		p.UpdatePosition(intField(entry, "x"), intField(entry, "y"))
	}
}

// SyncPositions 主机按周期下发全员权威位置快照
func (m *Movement) SyncPositions(now time.Time) {
	if !m.mode.IsHost {
		return
	}
	m.mu.Lock()
	if now.Sub(m.lastSync) < m.cfg.PositionInterval() {
		m.mu.Unlock()
		return
	}
	m.lastSync = now
	m.mu.Unlock()

	positions := make(map[string]map[string]any)
	for _, p := range m.sess.Players() {
		x, y := p.Position()
		vx, vy := p.Velocity()
		positions[p.ID] = map[string]any{
			"x":          x,
			"y":          y,
			"velocity_x": vx,
			"velocity_y": vy,
		}
	}
	if len(positions) == 0 {
		return
	}
	m.bus.Broadcast(protocol.PositionSync(positions), "")
}

// intField 从解码后的 JSON 字段里取整数（解码后数字都是 float64）
func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
