package netsync

import (
	"sync"

	"go.uber.org/zap"

	"dungeonnet/game"
	"dungeonnet/protocol"
	"dungeonnet/session"
)

// SessionSync 客户端会话簿记：接收主机下发的种子、地牢快照、
// 玩家列表与离开通知，把本地名册维护成主机名册的镜像
type SessionSync struct {
	sess *session.Session
	mode *game.Mode
	log  *zap.SugaredLogger

	mu          sync.Mutex
	dungeonSeed int64
	floor       int
	dungeon     map[string]any
	hasDungeon  bool
}

// NewSessionSync 创建会话簿记并注册握手后续消息的处理器（仅客户端）
func NewSessionSync(sess *session.Session, bus Bus, mode *game.Mode, log *zap.SugaredLogger) *SessionSync {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &SessionSync{sess: sess, mode: mode, log: log}
	if !mode.IsHost {
		bus.RegisterHandler(protocol.TypeSessionSeed, s.handleSessionSeed)
		bus.RegisterHandler(protocol.TypeDungeonData, s.handleDungeonData)
		bus.RegisterHandler(protocol.TypePlayerJoined, s.handlePlayerList)
		bus.RegisterHandler(protocol.TypePlayerLeft, s.handlePlayerLeft)
		bus.RegisterHandler(protocol.TypeCharacterRevival, s.handleRevival)
	}
	return s
}

// handleSessionSeed 采用主机的会话种子，之后每层地图本地独立生成
func (s *SessionSync) handleSessionSeed(msg *protocol.NetworkMessage, senderID string) {
	seed, ok := msg.Data["seed"].(float64)
	if !ok {
		s.log.Warnf("session_seed without seed field")
		return
	}
	s.sess.SetSeed(int64(seed))
	s.log.Infof("session seed adopted: %d", int64(seed))
}

// handleDungeonData 记录主机下发的楼层快照（中途加入的补齐通道）
func (s *SessionSync) handleDungeonData(msg *protocol.NetworkMessage, senderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floor = intField(msg.Data, "floor_number")
	if seed, ok := msg.Data["seed"].(float64); ok {
		s.dungeonSeed = int64(seed)
	}
	if d, ok := msg.Data["dungeon"].(map[string]any); ok {
		s.dungeon = d
	}
	s.hasDungeon = true
	s.log.Infof("dungeon snapshot for floor %d received", s.floor)
}

// DungeonSnapshot 最近收到的楼层快照；没收到过时 ok 为 false
func (s *SessionSync) DungeonSnapshot() (floor int, seed int64, dungeon map[string]any, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.floor, s.dungeonSeed, s.dungeon, s.hasDungeon
}

// handlePlayerList 把主机的名册快照合入本地：缺的建，有的对位置
func (s *SessionSync) handlePlayerList(msg *protocol.NetworkMessage, senderID string) {
	list, ok := msg.Data["players"].([]any)
	if !ok {
		return
	}
	for _, v := range list {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		pid, _ := entry["player_id"].(string)
		if pid == "" || s.mode.IsLocal(pid) {
			continue
		}
		x, y := intField(entry, "x"), intField(entry, "y")
		p := s.sess.GetPlayer(pid)
		if p == nil {
			name, _ := entry["player_name"].(string)
			p = session.NewPlayer(pid, name)
			if isBot, ok := entry["is_bot"].(bool); ok {
				p.IsBot = isBot
			}
			if !s.sess.AddPlayer(p) {
				s.log.Warnf("player list entry %s could not join local roster", pid)
				continue
			}
		}
		p.UpdatePosition(x, y)
		if connected, ok := entry["is_connected"].(bool); ok {
			p.SetConnected(connected)
		}
	}
}

// handlePlayerLeft 同步移除离开的玩家
func (s *SessionSync) handlePlayerLeft(msg *protocol.NetworkMessage, senderID string) {
	pid := msg.PlayerID
	if pid == "" || s.mode.IsLocal(pid) {
		return
	}
	if !s.sess.RemovePlayer(pid) {
		s.log.Debugf("player_left for unknown player %s", pid)
	}
}

// handleRevival 应用远端复活：标记存活并落位，数值以后续快照为准
func (s *SessionSync) handleRevival(msg *protocol.NetworkMessage, senderID string) {
	p := s.sess.GetPlayer(msg.PlayerID)
	if p == nil {
		s.log.Warnf("character_revival for unknown player %s", msg.PlayerID)
		return
	}
	charID, _ := msg.Data["character_id"].(string)
	for _, c := range p.Party {
		if c == nil || game.CharacterID(c) != charID {
			continue
		}
		c.Alive = true
		c.X = intField(msg.Data, "x")
		c.Y = intField(msg.Data, "y")
		if c.CurrentHP < 1 {
			c.CurrentHP = 1
		}
		return
	}
	s.log.Warnf("character_revival for unknown character %s of %s", charID, msg.PlayerID)
}
