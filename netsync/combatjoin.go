package netsync

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"dungeonnet/config"
	"dungeonnet/protocol"
	"dungeonnet/session"
)

// JoinCandidate 一次自动合流判定的结果：哪个玩家应并入哪场战斗
type JoinCandidate struct {
	PlayerID string
	CombatID string
	Position protocol.Position
}

// CombatJoin 战斗合流判定：维护活跃战斗的位置，按曼哈顿距离
// 判断附近玩家能否并入，已并入集合保证幂等
type CombatJoin struct {
	cfg *config.Config
	log *zap.SugaredLogger

	mu        sync.Mutex
	lastCheck time.Time
	combats   map[string]protocol.Position
	joined    map[string]map[string]struct{}
}

// NewCombatJoin 创建合流判定器
func NewCombatJoin(cfg *config.Config, log *zap.SugaredLogger) *CombatJoin {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &CombatJoin{
		cfg:     cfg,
		log:     log,
		combats: make(map[string]protocol.Position),
		joined:  make(map[string]map[string]struct{}),
	}
}

// RegisterCombat 登记一场活跃战斗及其发生位置
func (c *CombatJoin) RegisterCombat(combatID string, pos protocol.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.combats[combatID] = pos
	if c.joined[combatID] == nil {
		c.joined[combatID] = make(map[string]struct{})
	}
	c.log.Debugf("combat %s registered at (%d,%d)", combatID, pos.X, pos.Y)
}

// UnregisterCombat 战斗结束后注销，连同已并入集合一起清掉
func (c *CombatJoin) UnregisterCombat(combatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.combats, combatID)
	delete(c.joined, combatID)
}

// MarkPlayerJoined 标记玩家已并入该战斗，后续判定不再返回
func (c *CombatJoin) MarkPlayerJoined(combatID, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.joined[combatID] == nil {
		c.joined[combatID] = make(map[string]struct{})
	}
	c.joined[combatID][playerID] = struct{}{}
}

// CanJoin 判断玩家当前位置能否并入指定战斗
func (c *CombatJoin) CanJoin(playerID string, pos protocol.Position, combatID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canJoinLocked(playerID, pos, combatID)
}

func (c *CombatJoin) canJoinLocked(playerID string, pos protocol.Position, combatID string) bool {
	combatPos, ok := c.combats[combatID]
	if !ok {
		return false
	}
	if _, done := c.joined[combatID][playerID]; done {
		return false
	}
	return manhattan(pos, combatPos) <= c.cfg.JoinRadius()
}

// FindNearbyCombats 返回该位置可并入的全部战斗 ID
func (c *CombatJoin) FindNearbyCombats(playerID string, pos protocol.Position) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for id := range c.combats {
		if c.canJoinLocked(playerID, pos, id) {
			out = append(out, id)
		}
	}
	return out
}

// CheckAutoJoin 周期性扫描全员位置，返回应并入战斗的候选；
// 调用方完成角色合并后用 MarkPlayerJoined 落账
func (c *CombatJoin) CheckAutoJoin(now time.Time, players []*session.Player) []JoinCandidate {
	c.mu.Lock()
	if now.Sub(c.lastCheck) < c.cfg.JoinInterval() {
		c.mu.Unlock()
		return nil
	}
	c.lastCheck = now

	var out []JoinCandidate
	for _, p := range players {
		if p == nil || !p.IsConnected() {
			continue
		}
		x, y := p.Position()
		pos := protocol.Position{X: x, Y: y}
		for id := range c.combats {
			if c.canJoinLocked(p.ID, pos, id) {
				out = append(out, JoinCandidate{PlayerID: p.ID, CombatID: id, Position: pos})
			}
		}
	}
	c.mu.Unlock()

	for _, cand := range out {
		c.log.Infof("player %s eligible to join combat %s at (%d,%d)",
			cand.PlayerID, cand.CombatID, cand.Position.X, cand.Position.Y)
	}
	return out
}

// ActiveCombats 当前活跃战斗快照
func (c *CombatJoin) ActiveCombats() map[string]protocol.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]protocol.Position, len(c.combats))
	for id, pos := range c.combats {
		out[id] = pos
	}
	return out
}

func manhattan(a, b protocol.Position) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}
