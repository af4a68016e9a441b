package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"dungeonnet/game"
)

// Player 联机玩家（名册条目）
// 位置对主机是权威状态，对客户端只是展示用缓存
// 位置/连接/延迟字段会被接收协程和同步循环并发访问，走方法读写
type Player struct {
	ID   string
	Name string

	mu         sync.Mutex
	x, y       int
	velocityX  float64 // 插值预测用的速度提示
	velocityY  float64
	connected  bool
	lastUpdate time.Time
	pingMillis float64 // 平滑后的往返延迟

	Party       []*game.Character
	CharacterID string // 当前操作的角色 ID

	IsHost bool
	IsBot  bool

	SessionID string
}

// NewPlayer 创建玩家，ID 为空时自动生成
func NewPlayer(id, name string) *Player {
	if id == "" {
		id = uuid.NewString()
	}
	return &Player{
		ID:         id,
		Name:       name,
		connected:  true,
		lastUpdate: time.Now(),
	}
}

// UpdatePosition 更新位置并记录速度提示
func (p *Player) UpdatePosition(x, y int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.velocityX = float64(x - p.x)
	p.velocityY = float64(y - p.y)
	p.x = x
	p.y = y
	p.lastUpdate = time.Now()
}

// Move 相对移动，返回结算后的新位置
func (p *Player) Move(dx, dy int) (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.velocityX = float64(dx)
	p.velocityY = float64(dy)
	p.x += dx
	p.y += dy
	p.lastUpdate = time.Now()
	return p.x, p.y
}

// Position 当前格子坐标
func (p *Player) Position() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.x, p.y
}

// Velocity 最近一次移动的速度提示
func (p *Player) Velocity() (float64, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.velocityX, p.velocityY
}

// SetConnected 标记连接状态
func (p *Player) SetConnected(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = v
}

// IsConnected 当前是否在线
func (p *Player) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// SetPing 记录平滑后的往返延迟（毫秒）
func (p *Player) SetPing(millis float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pingMillis = millis
}

// Ping 平滑后的往返延迟（毫秒）
func (p *Player) Ping() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pingMillis
}

// Serialize 导出为玩家列表消息的条目
func (p *Player) Serialize() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]any{
		"player_id":    p.ID,
		"player_name":  p.Name,
		"x":            p.x,
		"y":            p.y,
		"is_host":      p.IsHost,
		"is_bot":       p.IsBot,
		"is_connected": p.connected,
		"ping":         p.pingMillis,
		"party_count":  len(p.Party),
	}
}
