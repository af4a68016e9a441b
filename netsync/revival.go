package netsync

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"dungeonnet/game"
	"dungeonnet/protocol"
	"dungeonnet/session"
)

// MarkState 某玩家的地图标记状态
type MarkState struct {
	Visible   bool
	LastDeath time.Time
}

// PlayerState 玩家存活标记：队伍全灭时隐藏该玩家的地图标记，
// 复活后恢复；变化即时广播，主机负责转发
type PlayerState struct {
	bus  Bus
	mode *game.Mode
	log  *zap.SugaredLogger

	mu    sync.Mutex
	marks map[string]*MarkState
}

// NewPlayerState 创建存活标记跟踪器并注册标记更新处理器
func NewPlayerState(bus Bus, mode *game.Mode, log *zap.SugaredLogger) *PlayerState {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ps := &PlayerState{bus: bus, mode: mode, log: log, marks: make(map[string]*MarkState)}
	bus.RegisterHandler(protocol.TypePlayerMarkUpdate, ps.handleMarkUpdate)
	return ps
}

// UpdatePlayerState 根据队伍存活情况刷新标记，变化时立即广播
func (ps *PlayerState) UpdatePlayerState(p *session.Player) {
	if p == nil {
		return
	}
	anyAlive := false
	for _, c := range p.Party {
		if c != nil && c.Alive {
			anyAlive = true
			break
		}
	}

	ps.mu.Lock()
	mark := ps.marks[p.ID]
	if mark == nil {
		mark = &MarkState{Visible: true}
		ps.marks[p.ID] = mark
	}
	changed := mark.Visible != anyAlive
	mark.Visible = anyAlive
	if changed && !anyAlive {
		mark.LastDeath = time.Now()
	}
	ps.mu.Unlock()

	if !changed {
		return
	}
	if anyAlive {
		ps.log.Infof("player %s party recovered, mark visible", p.ID)
	} else {
		ps.log.Infof("player %s party wiped, hiding mark", p.ID)
	}
	ps.bus.Broadcast(protocol.PlayerMarkUpdate(p.ID, anyAlive), "")
}

// handleMarkUpdate 应用远端的标记变化；主机继续转发给其余客户端
func (ps *PlayerState) handleMarkUpdate(msg *protocol.NetworkMessage, senderID string) {
	pid := msg.PlayerID
	if pid == "" || ps.mode.IsLocal(pid) {
		return
	}
	visible, _ := msg.Data["is_visible"].(bool)

	ps.mu.Lock()
	mark := ps.marks[pid]
	if mark == nil {
		mark = &MarkState{Visible: true}
		ps.marks[pid] = mark
	}
	mark.Visible = visible
	if !visible {
		mark.LastDeath = time.Now()
	}
	ps.mu.Unlock()

	if ps.mode.IsHost && senderID != "" {
		ps.bus.Broadcast(msg, senderID)
	}
}

// IsMarkVisible 查询标记显隐，未登记的玩家默认可见
func (ps *PlayerState) IsMarkVisible(playerID string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if mark, ok := ps.marks[playerID]; ok {
		return mark.Visible
	}
	return true
}

// Revival 角色复活：恢复部分 HP/MP、把角色放到施救者旁的可走格并广播
type Revival struct {
	state    *PlayerState
	bus      Bus
	log      *zap.SugaredLogger
	walkable func(x, y int) bool
}

// NewRevival 创建复活处理器；walkable 判断格子是否可站人，nil 表示不限制
func NewRevival(state *PlayerState, bus Bus, walkable func(x, y int) bool, log *zap.SugaredLogger) *Revival {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Revival{state: state, bus: bus, log: log, walkable: walkable}
}

// Revive 复活 owner 队伍里的角色 ch；hpPct 为恢复比例，非法时取 50%
// reviver 非空时在其旁边落位，否则落在 owner 旁边
func (r *Revival) Revive(owner *session.Player, ch *game.Character, hpPct float64, reviver *session.Player) bool {
	if owner == nil || ch == nil {
		return false
	}
	if ch.Alive {
		r.log.Warnf("revive skipped: %s is alive", game.CharacterID(ch))
		return false
	}
	if hpPct <= 0 || hpPct > 1 {
		hpPct = 0.5
	}

	ch.CurrentHP = int(float64(ch.MaxHP) * hpPct)
	if ch.CurrentHP < 1 {
		ch.CurrentHP = 1
	}
	ch.CurrentMP = ch.MaxMP / 2
	ch.Alive = true
	ch.Statuses = nil // 死亡清掉所有状态效果，复活后从干净状态开始

	anchor := owner
	if reviver != nil {
		anchor = reviver
	}
	ax, ay := anchor.Position()
	pos := r.adjacentFreeTile(ax, ay)
	ch.X, ch.Y = pos.X, pos.Y

	r.log.Infof("character %s of %s revived at (%d,%d) with %d hp",
		game.CharacterID(ch), owner.ID, pos.X, pos.Y, ch.CurrentHP)
	r.bus.Broadcast(protocol.CharacterRevival(owner.ID, game.CharacterID(ch), pos), "")
	r.state.UpdatePlayerState(owner)
	return true
}

// adjacentFreeTile 先试四邻格再试对角，全不可走时落回原点
func (r *Revival) adjacentFreeTile(x, y int) protocol.Position {
	offsets := [][2]int{
		{1, 0}, {-1, 0}, {0, 1}, {0, -1},
		{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
	}
	for _, off := range offsets {
		nx, ny := x+off[0], y+off[1]
		if r.walkable == nil || r.walkable(nx, ny) {
			return protocol.Position{X: nx, Y: ny}
		}
	}
	return protocol.Position{X: x, Y: y}
}

// DeadCharacters 返回玩家队伍里全部阵亡角色
func DeadCharacters(p *session.Player) []*game.Character {
	if p == nil {
		return nil
	}
	var out []*game.Character
	for _, c := range p.Party {
		if c != nil && !c.Alive {
			out = append(out, c)
		}
	}
	return out
}
