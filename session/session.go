package session

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MinPlayers 最少玩家数
	MinPlayers = 2
	// MaxPlayers 最多玩家数
	MaxPlayers = 4
)

// Session 一局联机会话：名册、主机选举、楼层种子、换层屏障
type Session struct {
	ID         string
	MaxPlayers int
	Seed       int64
	CreatedAt  time.Time

	mu      sync.RWMutex
	hostID  string
	players map[string]*Player
	order   []string // 加入顺序，主机选举按它来

	floorReady map[string]struct{}

	// 平衡参数（与单机一致，奖励结算读取）
	balance map[string]float64

	log *zap.SugaredLogger
}

// New 创建会话；maxPlayers 必须在 2~4 之间
func New(maxPlayers int, log *zap.SugaredLogger) (*Session, error) {
	if maxPlayers < MinPlayers || maxPlayers > MaxPlayers {
		return nil, fmt.Errorf("max players must be between %d and %d, got %d", MinPlayers, MaxPlayers, maxPlayers)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Session{
		ID:         uuid.NewString(),
		MaxPlayers: maxPlayers,
		Seed:       rand.Int63n(1 << 31),
		CreatedAt:  time.Now(),
		players:    make(map[string]*Player),
		floorReady: make(map[string]struct{}),
		balance: map[string]float64{
			"enemy_count_multiplier":  1.0,
			"enemy_hp_multiplier":     1.0,
			"enemy_damage_multiplier": 1.0,
			"exp_multiplier":          1.0,
			"drop_rate_multiplier":    1.0,
		},
		log: log,
	}, nil
}

// AddPlayer 加入玩家；名额满或 ID 重复时返回 false
// 第一个加入的玩家自动成为主机
func (s *Session) AddPlayer(p *Player) bool {
	if p == nil || p.ID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.players) >= s.MaxPlayers {
		s.log.Warnf("session %s: roster full (%d/%d), rejecting %s", s.ID, len(s.players), s.MaxPlayers, p.ID)
		return false
	}
	if _, exists := s.players[p.ID]; exists {
		s.log.Warnf("session %s: player %s already joined", s.ID, p.ID)
		return false
	}

	p.SessionID = s.ID
	s.players[p.ID] = p
	s.order = append(s.order, p.ID)

	if s.hostID == "" {
		s.hostID = p.ID
		p.IsHost = true
		s.log.Infof("session %s: %s elected host", s.ID, p.ID)
	}

	s.log.Infof("session %s: player %s (%s) joined (%d/%d)", s.ID, p.Name, p.ID, len(s.players), s.MaxPlayers)
	return true
}

// RemovePlayer 移除玩家；不存在时返回 false
// 主机离开时按加入顺序把主机让给下一个人
func (s *Session) RemovePlayer(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		s.log.Warnf("session %s: remove unknown player %s", s.ID, playerID)
		return false
	}
	delete(s.players, playerID)
	delete(s.floorReady, playerID)
	for i, id := range s.order {
		if id == playerID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.Infof("session %s: player %s (%s) left (%d/%d)", s.ID, p.Name, playerID, len(s.players), s.MaxPlayers)

	if playerID == s.hostID {
		if len(s.order) > 0 {
			s.hostID = s.order[0]
			s.players[s.hostID].IsHost = true
			s.log.Infof("session %s: host migrated to %s", s.ID, s.hostID)
		} else {
			s.hostID = ""
			s.log.Warnf("session %s: roster empty, no host", s.ID)
		}
	}
	return true
}

// GetPlayer 查询玩家，没有返回 nil
func (s *Session) GetPlayer(playerID string) *Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.players[playerID]
}

// IsHost 判断指定玩家是否为主机
func (s *Session) IsHost(playerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hostID != "" && playerID == s.hostID
}

// HostID 当前主机 ID，名册为空时返回空串
func (s *Session) HostID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hostID
}

// IsFull 名额是否已满
func (s *Session) IsFull() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players) >= s.MaxPlayers
}

// PlayerCount 当前玩家数
func (s *Session) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// Players 按加入顺序返回玩家快照
func (s *Session) Players() []*Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Player, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.players[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// PlayersByID 返回 {player_id: player} 的浅拷贝
func (s *Session) PlayersByID() map[string]*Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*Player, len(s.players))
	for id, p := range s.players {
		out[id] = p
	}
	return out
}

// SetSeed 采用主机下发的会话种子（客户端握手后调用）
func (s *Session) SetSeed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Seed = seed
}

// SessionSeed 当前会话种子
func (s *Session) SessionSeed() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Seed
}

// DungeonSeedForFloor 楼层种子：由 (会话种子, 楼层号) 确定性导出
// 主机和客户端各自独立生成同一张地图，无需传整张地图
func (s *Session) DungeonSeedForFloor(floor int) int64 {
	s.mu.RLock()
	seed := s.Seed
	s.mu.RUnlock()
	h := fnv.New64a()
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:], uint64(floor))
	_, _ = h.Write(buf[:])
	return int64(h.Sum64() % (1 << 31))
}

// SetFloorReady 设置换层准备状态
func (s *Session) SetFloorReady(playerID string, ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ready {
		s.floorReady[playerID] = struct{}{}
	} else {
		delete(s.floorReady, playerID)
	}
	s.log.Debugf("session %s: player %s floor-ready=%v (%d/%d)", s.ID, playerID, ready, len(s.floorReady), len(s.players))
}

// AllReadyForFloorChange 全员（含机器人）就绪才允许换层
func (s *Session) AllReadyForFloorChange() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.floorReady) == 0 || len(s.players) == 0 {
		return false
	}
	for id := range s.players {
		if _, ok := s.floorReady[id]; !ok {
			return false
		}
	}
	return true
}

// ResetFloorReady 换层完成后清空准备状态
func (s *Session) ResetFloorReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floorReady = make(map[string]struct{})
}

// BalanceMultiplier 读取平衡系数，未配置的键返回 1.0
func (s *Session) BalanceMultiplier(key string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.balance[key]; ok {
		return v
	}
	return 1.0
}

// Serialize 导出会话快照（玩家列表消息用）
func (s *Session) Serialize() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]map[string]any, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.players[id]; ok {
			out = append(out, p.Serialize())
		}
	}
	return out
}
