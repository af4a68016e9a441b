package netsync

import (
	"sync"

	"go.uber.org/zap"

	"dungeonnet/game"
	"dungeonnet/protocol"
)

// CombatSync 战斗动作同步：客户端把行动请求发给主机，
// 主机做所有权校验并结算，随后广播带完整战斗快照的状态更新
type CombatSync struct {
	bus      Bus
	mode     *game.Mode
	log      *zap.SugaredLogger
	resolver game.ActionResolver
	roster   game.CombatRoster
	gauge    game.ActorGauge
	inv      game.Inventory

	mu        sync.Mutex
	selecting map[string]struct{}
}

// NewCombatSync 创建战斗同步器；主机注册行动请求处理器，客户端注册状态更新处理器
func NewCombatSync(bus Bus, mode *game.Mode, resolver game.ActionResolver, roster game.CombatRoster, gauge game.ActorGauge, inv game.Inventory, log *zap.SugaredLogger) *CombatSync {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &CombatSync{
		bus:       bus,
		mode:      mode,
		log:       log,
		resolver:  resolver,
		roster:    roster,
		gauge:     gauge,
		inv:       inv,
		selecting: make(map[string]struct{}),
	}
	if mode.IsHost {
		bus.RegisterHandler(protocol.TypeCombatAction, s.handleCombatAction)
	} else {
		bus.RegisterHandler(protocol.TypeStateUpdate, s.handleStateUpdate)
	}
	return s
}

// RequestAction 本地玩家为自己的角色发起一次战斗行动
// 主机本机直接结算；客户端发请求给主机并进入选择等待
func (s *CombatSync) RequestAction(actorID string, kind game.ActionKind, targetID, skillID, itemID string) bool {
	pid := s.mode.LocalPlayerID
	if s.mode.IsHost {
		return s.resolveAction(pid, actorID, string(kind), targetID, skillID, itemID)
	}

	action := map[string]any{
		"action_type": string(kind),
		"timestamp":   protocol.Now(),
	}
	if targetID != "" {
		action["target_id"] = targetID
	}
	if skillID != "" {
		action["skill_id"] = skillID
	}
	if itemID != "" {
		action["item_id"] = itemID
	}
	s.bus.Send(protocol.CombatAction(pid, actorID, action), "")
	s.setSelecting(pid, true)
	return true
}

// handleCombatAction 主机处理客户端的行动请求
func (s *CombatSync) handleCombatAction(msg *protocol.NetworkMessage, senderID string) {
	pid := msg.PlayerID
	if pid == "" {
		pid = senderID
	}
	actorID, _ := msg.Data["actor_id"].(string)
	action, _ := msg.Data["action"].(map[string]any)
	if actorID == "" || action == nil {
		s.log.Warnf("combat_action from %s missing actor or action", pid)
		return
	}
	kind, _ := action["action_type"].(string)
	targetID, _ := action["target_id"].(string)
	skillID, _ := action["skill_id"].(string)
	itemID, _ := action["item_id"].(string)
	s.resolveAction(pid, actorID, kind, targetID, skillID, itemID)
}

// resolveAction 主机侧结算：所有权校验、目标/物品解析、执行、广播
// 校验失败只记日志丢弃，不发任何回应
func (s *CombatSync) resolveAction(playerID, actorID, kind, targetID, skillID, itemID string) bool {
	actor := s.roster.FindCombatant(actorID)
	if actor == nil {
		s.log.Warnf("combat_action from %s for unknown actor %s", playerID, actorID)
		return false
	}
	if actor.OwnerID != playerID {
		s.log.Warnf("player %s tried to act with %s owned by %s, dropping", playerID, actorID, actor.OwnerID)
		return false
	}

	var target *game.Character
	if targetID != "" {
		target = s.roster.FindCombatant(targetID)
		if target == nil {
			// 目标已不在战斗里，跳过该字段继续结算
			s.log.Warnf("combat_action target %s not found, resolving without target", targetID)
		}
	}
	if itemID != "" {
		if _, ok := s.inv.FindItemByID(itemID); !ok {
			s.log.Warnf("combat_action from %s references unknown item %s, dropping", playerID, itemID)
			return false
		}
	}

	result, err := s.resolver.ExecuteAction(actor, game.ActionKind(kind), target, skillID, itemID)
	if err != nil {
		s.log.Warnf("action %s by %s failed: %v", kind, actorID, err)
		s.gauge.SetPlayerSelecting(playerID, false)
		s.setSelecting(playerID, false)
		return false
	}
	s.gauge.ConsumeATB(actor)

	detail := map[string]any{
		"player_id":   playerID,
		"actor_id":    actorID,
		"action_type": kind,
		"result":      result,
	}
	if targetID != "" {
		detail["target_id"] = targetID
	}
	if skillID != "" {
		detail["skill_id"] = skillID
	}
	if itemID != "" {
		detail["item_id"] = itemID
	}
	s.bus.Broadcast(protocol.StateUpdate(map[string]any{
		"combat_action": detail,
		"combat_state":  s.combatSnapshot(),
		"timestamp":     protocol.Now(),
	}), "")

	s.gauge.SetPlayerSelecting(playerID, false)
	s.setSelecting(playerID, false)
	return true
}

// combatSnapshot 导出全量战斗状态，随每次状态更新下发
func (s *CombatSync) combatSnapshot() map[string]any {
	combatants := s.roster.Combatants()
	list := make([]map[string]any, 0, len(combatants))
	for _, c := range combatants {
		entry := map[string]any{
			"id":          game.CharacterID(c),
			"current_hp":  c.CurrentHP,
			"max_hp":      c.MaxHP,
			"current_mp":  c.CurrentMP,
			"max_mp":      c.MaxMP,
			"current_brv": c.CurrentBRV,
			"is_alive":    c.Alive,
		}
		if g, ok := s.gauge.Gauge(c); ok {
			entry["atb_current"] = g.Current
			entry["atb_max"] = g.Max
			entry["atb_can_act"] = g.CanAct
		}
		list = append(list, entry)
	}
	return map[string]any{
		"phase":      s.roster.Phase(),
		"turn_count": s.roster.TurnCount(),
		"combatants": list,
	}
}

// handleStateUpdate 客户端应用主机广播的战斗状态
func (s *CombatSync) handleStateUpdate(msg *protocol.NetworkMessage, senderID string) {
	data, ok := msg.Data["data"].(map[string]any)
	if !ok {
		return
	}
	if detail, ok := data["combat_action"].(map[string]any); ok {
		pid, _ := detail["player_id"].(string)
		if s.mode.IsLocal(pid) {
			// 自己的行动结果本地已经展示过，只需要解除选择等待
			s.gauge.SetPlayerSelecting(pid, false)
			s.setSelecting(pid, false)
		}
	}
	if snapshot, ok := data["combat_state"].(map[string]any); ok {
		s.applySnapshot(snapshot)
	}
}

// applySnapshot 用主机快照覆盖本地战斗状态；未知角色跳过该条目
func (s *CombatSync) applySnapshot(snapshot map[string]any) {
	if phase, ok := snapshot["phase"].(string); ok {
		s.roster.SetPhase(phase)
	}
	if tc, ok := snapshot["turn_count"].(float64); ok {
		s.roster.SetTurnCount(int(tc))
	}
	list, ok := snapshot["combatants"].([]any)
	if !ok {
		return
	}
	for _, v := range list {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		id, _ := entry["id"].(string)
		c := s.roster.FindCombatant(id)
		if c == nil {
			s.log.Warnf("snapshot references unknown combatant %s, skipping", id)
			continue
		}
		c.CurrentHP = intField(entry, "current_hp")
		c.MaxHP = intField(entry, "max_hp")
		c.CurrentMP = intField(entry, "current_mp")
		c.MaxMP = intField(entry, "max_mp")
		c.CurrentBRV = intField(entry, "current_brv")
		if alive, ok := entry["is_alive"].(bool); ok {
			c.Alive = alive
		}
	}
}

// IsSelecting 查询某玩家是否处于行动选择等待中
func (s *CombatSync) IsSelecting(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.selecting[playerID]
	return ok
}

func (s *CombatSync) setSelecting(playerID string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v {
		s.selecting[playerID] = struct{}{}
	} else {
		delete(s.selecting, playerID)
	}
}
