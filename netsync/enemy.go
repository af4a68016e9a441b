package netsync

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"dungeonnet/config"
	"dungeonnet/game"
	"dungeonnet/protocol"
)

// EnemyState 主机侧上报的一个敌人位置；ID 为空时用坐标合成
type EnemyState struct {
	ID string
	X  int
	Y  int
}

// EnemySync 敌人位置同步：只有主机驱动敌人 AI 并按周期批量广播，
// 客户端只维护一份位置缓存供渲染
type EnemySync struct {
	bus  Bus
	mode *game.Mode
	cfg  *config.Config
	log  *zap.SugaredLogger

	mu       sync.Mutex
	lastMove time.Time
	cache    map[string]protocol.Position
}

// NewEnemySync 创建敌人同步器；客户端注册缓存更新处理器
func NewEnemySync(bus Bus, mode *game.Mode, cfg *config.Config, log *zap.SugaredLogger) *EnemySync {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	e := &EnemySync{
		bus:   bus,
		mode:  mode,
		cfg:   cfg,
		cache: make(map[string]protocol.Position),
	}
	e.log = log
	if !mode.IsHost {
		bus.RegisterHandler(protocol.TypeEnemyMove, e.handleEnemyMove)
	}
	return e
}

// CanMoveEnemies 主机节流判断：是否到了下一个敌人行动周期
// 返回 true 时同时推进周期计时
func (e *EnemySync) CanMoveEnemies(now time.Time) bool {
	if !e.mode.IsHost {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if now.Sub(e.lastMove) < e.cfg.EnemyInterval() {
		return false
	}
	e.lastMove = now
	return true
}

// SyncEnemyPositions 主机把当前楼层全部敌人位置打包广播
func (e *EnemySync) SyncEnemyPositions(enemies []EnemyState) {
	if !e.mode.IsHost || len(enemies) == 0 {
		return
	}
	ts := protocol.Now()
	batch := make(map[string]map[string]any, len(enemies))
	for _, en := range enemies {
		id := en.ID
		if id == "" {
			id = fmt.Sprintf("enemy_%d_%d", en.X, en.Y)
		}
		batch[id] = map[string]any{
			"x":         en.X,
			"y":         en.Y,
			"timestamp": ts,
		}
	}
	e.bus.Broadcast(protocol.EnemyMove(batch), "")
}

// handleEnemyMove 客户端整批替换敌人位置缓存
func (e *EnemySync) handleEnemyMove(msg *protocol.NetworkMessage, senderID string) {
	raw, ok := msg.Data["enemies"].(map[string]any)
	if !ok {
		e.log.Warnf("enemy_move without enemies field from %s", senderID)
		return
	}
	next := make(map[string]protocol.Position, len(raw))
	for id, v := range raw {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		next[id] = protocol.Position{X: intField(entry, "x"), Y: intField(entry, "y")}
	}
	e.mu.Lock()
	e.cache = next
	e.mu.Unlock()
}

// EnemyPosition 查询缓存里某个敌人的位置
func (e *EnemySync) EnemyPosition(id string) (protocol.Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, ok := e.cache[id]
	return pos, ok
}

// Positions 返回缓存快照
func (e *EnemySync) Positions() map[string]protocol.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]protocol.Position, len(e.cache))
	for id, pos := range e.cache {
		out[id] = pos
	}
	return out
}
