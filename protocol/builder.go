package protocol

// 每个逻辑事件对应一个构造函数，新增事件只需加一个构造函数和一个处理分支

// ProtocolVersion 协议版本，随连接消息发送
const ProtocolVersion = "5.0.0"

// Position 平铺的整数格子坐标
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Connect 连接请求
func Connect(playerID, playerName string) *NetworkMessage {
	return New(TypeConnect, playerID, map[string]any{
		"player_name": playerName,
		"version":     ProtocolVersion,
	})
}

// ConnectionAccepted 连接被接受
func ConnectionAccepted(playerID, sessionID string) *NetworkMessage {
	return New(TypeConnectionAccepted, playerID, map[string]any{
		"session_id": sessionID,
	})
}

// ConnectionRejected 连接被拒绝
func ConnectionRejected(playerID, reason string) *NetworkMessage {
	return New(TypeConnectionRejected, playerID, map[string]any{
		"reason": reason,
	})
}

// SessionSeed 会话种子（客户端据此独立生成同一地牢）
func SessionSeed(seed int64, sessionID string) *NetworkMessage {
	return New(TypeSessionSeed, "", map[string]any{
		"seed":       seed,
		"session_id": sessionID,
	})
}

// DungeonData 地牢快照（已探索楼层的回退/校验通道）
func DungeonData(dungeon map[string]any, floorNumber int, seed int64) *NetworkMessage {
	return New(TypeDungeonData, "", map[string]any{
		"dungeon":      dungeon,
		"floor_number": floorNumber,
		"seed":         seed,
	})
}

// PlayerList 当前玩家列表（新客户端入场时下发）
func PlayerList(players []map[string]any) *NetworkMessage {
	return New(TypePlayerJoined, "", map[string]any{
		"players": players,
	})
}

// PlayerLeft 玩家离开通知
func PlayerLeft(playerID string) *NetworkMessage {
	return New(TypePlayerLeft, playerID, nil)
}

// PlayerMove 玩家位置变更（即时转发通道）
func PlayerMove(playerID string, x, y int) *NetworkMessage {
	return New(TypePlayerMove, playerID, map[string]any{
		"x": x,
		"y": y,
	})
}

// PositionSync 周期性权威位置快照
func PositionSync(positions map[string]map[string]any) *NetworkMessage {
	return New(TypePositionSync, "", map[string]any{
		"positions": positions,
	})
}

// MoveRequest 客户端移动请求（主机权威结算）
func MoveRequest(playerID string, dx, dy int) *NetworkMessage {
	return New(TypeMoveRequest, playerID, map[string]any{
		"dx": dx,
		"dy": dy,
	})
}

// CombatStart 战斗开始
func CombatStart(combatID string, participants, enemies []string, pos Position) *NetworkMessage {
	return New(TypeCombatStart, "", map[string]any{
		"combat_id":    combatID,
		"participants": participants,
		"enemies":      enemies,
		"position":     map[string]any{"x": pos.X, "y": pos.Y},
	})
}

// CombatJoin 玩家合流进行中的战斗
func CombatJoin(playerID string, characters []string, combatID string) *NetworkMessage {
	return New(TypeCombatJoin, playerID, map[string]any{
		"characters": characters,
		"combat_id":  combatID,
	})
}

// CombatAction 战斗行动请求（客户端 -> 主机）
func CombatAction(playerID, actorID string, action map[string]any) *NetworkMessage {
	return New(TypeCombatAction, playerID, map[string]any{
		"actor_id": actorID,
		"action":   action,
	})
}

// StateUpdate 战斗状态广播（主机 -> 全体客户端）
func StateUpdate(data map[string]any) *NetworkMessage {
	return New(TypeStateUpdate, "", map[string]any{
		"data": data,
	})
}

// EnemyMove 敌人位置批量广播（仅主机发送）
func EnemyMove(enemyPositions map[string]map[string]any) *NetworkMessage {
	return New(TypeEnemyMove, "", map[string]any{
		"enemies": enemyPositions,
	})
}

// NPCMove NPC 位置批量广播
func NPCMove(npcPositions map[string]map[string]any) *NetworkMessage {
	return New(TypeNPCMove, "", map[string]any{
		"npcs": npcPositions,
	})
}

// PingRequest 延迟探测请求
func PingRequest(playerID string) *NetworkMessage {
	return New(TypePingRequest, playerID, nil)
}

// PongResponse 延迟探测应答，回显请求时间戳
func PongResponse(playerID string, timestamp float64) *NetworkMessage {
	return New(TypePongResponse, playerID, map[string]any{
		"timestamp": timestamp,
	})
}

// Chat 聊天消息
func Chat(playerID, message string) *NetworkMessage {
	return New(TypeChatMessage, playerID, map[string]any{
		"message": message,
	})
}

// LobbyComplete 大厅完成（进入队伍配置）
func LobbyComplete(playerCount int) *NetworkMessage {
	return New(TypeLobbyComplete, "", map[string]any{
		"player_count": playerCount,
	})
}

// JobSelected 职业被选中
func JobSelected(jobID, playerID string) *NetworkMessage {
	return New(TypeJobSelected, playerID, map[string]any{
		"job_id": jobID,
	})
}

// JobDeselected 职业被放回
func JobDeselected(jobID, playerID string) *NetworkMessage {
	return New(TypeJobDeselected, playerID, map[string]any{
		"job_id": jobID,
	})
}

// JobSelectionComplete 玩家完成职业选择
func JobSelectionComplete(playerID string) *NetworkMessage {
	return New(TypeJobSelectionComplete, playerID, nil)
}

// TurnChanged 职业选择轮换
func TurnChanged(currentPlayerID string, playerOrder []string) *NetworkMessage {
	return New(TypeTurnChanged, "", map[string]any{
		"current_player_id": currentPlayerID,
		"player_order":      playerOrder,
	})
}

// PassivesSet 队伍被动设置完成
func PassivesSet(passives []string) *NetworkMessage {
	return New(TypePassivesSet, "", map[string]any{
		"passives": passives,
	})
}

// GameStart 游戏开始（主机完成被动/难度选择后）
func GameStart(dungeon map[string]any, floorNumber int, dungeonSeed int64, difficulty string, passives []string, playerPositions map[string]Position) *NetworkMessage {
	data := map[string]any{
		"dungeon":      dungeon,
		"floor_number": floorNumber,
		"seed":         dungeonSeed,
		"difficulty":   difficulty,
	}
	if len(passives) > 0 {
		data["passives"] = passives
	}
	if len(playerPositions) > 0 {
		positions := make(map[string]any, len(playerPositions))
		for pid, pos := range playerPositions {
			positions[pid] = map[string]any{"x": pos.X, "y": pos.Y}
		}
		data["player_positions"] = positions
	}
	return New(TypeGameStart, "", data)
}

// FloorChange 楼层切换
func FloorChange(floorNumber int, seed int64) *NetworkMessage {
	return New(TypeFloorChange, "", map[string]any{
		"floor_number": floorNumber,
		"seed":         seed,
	})
}

// CharacterRevival 角色复活
func CharacterRevival(playerID, characterID string, pos Position) *NetworkMessage {
	return New(TypeCharacterRevival, playerID, map[string]any{
		"character_id": characterID,
		"x":            pos.X,
		"y":            pos.Y,
	})
}

// PlayerMarkUpdate 地图标记显隐切换（全灭隐藏、复活恢复）
func PlayerMarkUpdate(playerID string, visible bool) *NetworkMessage {
	return New(TypePlayerMarkUpdate, playerID, map[string]any{
		"is_visible": visible,
	})
}

// Harvest 采集对象被收集
func Harvest(x, y int, objectType string) *NetworkMessage {
	return New(TypeHarvest, "", map[string]any{
		"x":           x,
		"y":           y,
		"object_type": objectType,
	})
}

// ItemPickedUp 地面物品被拾取
func ItemPickedUp(x, y int) *NetworkMessage {
	return New(TypeItemPickedUp, "", map[string]any{
		"x": x,
		"y": y,
	})
}

// ItemDropped 物品掉落
func ItemDropped(x, y int, item map[string]any) *NetworkMessage {
	return New(TypeItemDropped, "", map[string]any{
		"x":    x,
		"y":    y,
		"item": item,
	})
}

// GoldDropped 金币掉落
func GoldDropped(x, y, amount int) *NetworkMessage {
	return New(TypeGoldDropped, "", map[string]any{
		"x":      x,
		"y":      y,
		"amount": amount,
	})
}
