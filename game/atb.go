package game

import (
	"sync"
	"time"
)

const (
	// DefaultGaugeMax 行动条满值
	DefaultGaugeMax = 100.0
	// bulletTimeInterval 子弹时间更新周期：4 次调用只推进 1 次（1/4 速度）
	bulletTimeInterval = 4
)

// ATBGauge 单个单位的行动条
type ATBGauge struct {
	Current float64
	Max     float64
	Speed   float64 // 单位速度，决定涨条快慢
}

// MultiplayerATB 联机专用行动条系统
// 规则：子弹时间常驻（1/4 速度推进）；任意玩家确认行动后全场行动条停 1.5 秒
type MultiplayerATB struct {
	mu sync.Mutex

	order  []*Character
	gauges map[*Character]*ATBGauge

	selecting     map[string]struct{}
	lastConfirmed time.Time // 最近一次行动确认时间，零值表示没有
	actionWait    time.Duration

	bulletTimeCounter int

	now func() time.Time
}

// NewMultiplayerATB 创建联机行动条系统
func NewMultiplayerATB(actionWait time.Duration) *MultiplayerATB {
	return &MultiplayerATB{
		gauges:     make(map[*Character]*ATBGauge),
		selecting:  make(map[string]struct{}),
		actionWait: actionWait,
		now:        time.Now,
	}
}

// AddCombatant 将单位纳入行动条管理
func (a *MultiplayerATB) AddCombatant(c *Character, speed float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.gauges[c]; ok {
		return
	}
	a.order = append(a.order, c)
	a.gauges[c] = &ATBGauge{Max: DefaultGaugeMax, Speed: speed}
}

// RemoveCombatant 将单位移出行动条管理（战斗结束或逃跑）
func (a *MultiplayerATB) RemoveCombatant(c *Character) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.gauges, c)
	for i, other := range a.order {
		if other == c {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// SetPlayerSelecting 标记玩家指令选择状态
// 选择结束视为行动确认，全场行动条停 actionWait
func (a *MultiplayerATB) SetPlayerSelecting(playerID string, selecting bool) {
	if playerID == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if selecting {
		a.selecting[playerID] = struct{}{}
		return
	}
	if _, ok := a.selecting[playerID]; ok {
		delete(a.selecting, playerID)
		a.lastConfirmed = a.now()
	}
}

// IsSelecting 指定玩家是否处于指令选择中
func (a *MultiplayerATB) IsSelecting(playerID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.selecting[playerID]
	return ok
}

// inActionWait 是否处于行动确认后的全场停顿
func (a *MultiplayerATB) inActionWait() bool {
	if a.lastConfirmed.IsZero() {
		return false
	}
	if a.now().Sub(a.lastConfirmed) >= a.actionWait {
		a.lastConfirmed = time.Time{}
		return false
	}
	return true
}

// Update 推进行动条，delta 为经过的秒数
func (a *MultiplayerATB) Update(delta float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// 子弹时间常驻：4 次调用只推进 1 次
	a.bulletTimeCounter++
	if a.bulletTimeCounter < bulletTimeInterval {
		return
	}
	a.bulletTimeCounter = 0

	if a.inActionWait() {
		return
	}

	for c, g := range a.gauges {
		if !c.Alive {
			g.Current = 0
			continue
		}
		g.Current += g.Speed * delta / 10.0
		if g.Current > g.Max {
			g.Current = g.Max
		}
	}
}

// ActionOrder 返回行动条已满的单位，按加入顺序
func (a *MultiplayerATB) ActionOrder() []*Character {
	a.mu.Lock()
	defer a.mu.Unlock()
	var ready []*Character
	for _, c := range a.order {
		g := a.gauges[c]
		if g != nil && c.Alive && g.Current >= g.Max {
			ready = append(ready, c)
		}
	}
	return ready
}

// ConsumeATB 行动后清空行动条
func (a *MultiplayerATB) ConsumeATB(actor *Character) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if g, ok := a.gauges[actor]; ok {
		g.Current = 0
	}
}

// Gauge 读取单位的行动条状态
func (a *MultiplayerATB) Gauge(actor *Character) (GaugeState, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	g, ok := a.gauges[actor]
	if !ok {
		return GaugeState{}, false
	}
	return GaugeState{Current: g.Current, Max: g.Max, CanAct: g.Current >= g.Max}, true
}

var _ ActorGauge = (*MultiplayerATB)(nil)
