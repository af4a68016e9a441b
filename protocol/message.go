package protocol

import (
	"fmt"
	"strings"
	"time"
)

// MessageType 消息类型标签（封闭集合，按版本演进）
type MessageType string

const (
	// 连接相关
	TypeConnect            MessageType = "connect"
	TypeDisconnect         MessageType = "disconnect"
	TypeConnectionAccepted MessageType = "connection_accepted"
	TypeConnectionRejected MessageType = "connection_rejected"

	// 会话相关
	TypeSessionStart MessageType = "session_start"
	TypeSessionSeed  MessageType = "session_seed"
	TypePlayerJoined MessageType = "player_joined"
	TypePlayerLeft   MessageType = "player_left"

	// 大厅 / 职业选择
	TypeLobbyComplete        MessageType = "lobby_complete"
	TypeJobSelected          MessageType = "job_selected"
	TypeJobDeselected        MessageType = "job_deselected"
	TypeJobSelectionComplete MessageType = "job_selection_complete"
	TypeTurnChanged          MessageType = "turn_changed"
	TypeRequestJob           MessageType = "request_job"
	TypeReleaseJob           MessageType = "release_job"
	TypePassivesSet          MessageType = "passives_set"
	TypeGameStart            MessageType = "game_start"

	// 角色状态
	TypeCharacterDeath   MessageType = "character_death"
	TypeCharacterRevival MessageType = "character_revival"
	TypePlayerMarkUpdate MessageType = "player_mark_update"

	// 游戏状态
	TypePlayerMove           MessageType = "player_move"
	TypeMoveRequest          MessageType = "move_request"
	TypePositionSync         MessageType = "position_sync"
	TypeCombatStart          MessageType = "combat_start"
	TypeCombatJoin           MessageType = "combat_join"
	TypeCombatAction         MessageType = "combat_action"
	TypeActionSelectionStart MessageType = "action_selection_start"

	// 状态同步
	TypeCharacterStatesUpdate MessageType = "character_states_update"
	TypeStateSync             MessageType = "state_sync"
	TypeStateUpdate           MessageType = "state_update"

	// 背包
	TypeInventoryUpdate MessageType = "inventory_update"
	TypeItemUsed        MessageType = "item_used"
	TypeItemPickedUp    MessageType = "item_picked_up"

	// 敌人 / NPC
	TypeEnemyMove MessageType = "enemy_move"
	TypeNPCMove   MessageType = "npc_move"

	// 战斗合流
	TypeCombatAutoJoin MessageType = "combat_auto_join"

	// 网络
	TypePingRequest  MessageType = "ping_request"
	TypePongResponse MessageType = "pong_response"

	// 聊天
	TypeChatMessage MessageType = "chat_message"

	// 地牢
	TypeDungeonData MessageType = "dungeon_data"
	TypeFloorChange MessageType = "floor_change"

	// 采集 / 掉落
	TypeHarvest     MessageType = "harvest"
	TypeItemDropped MessageType = "item_dropped"
	TypeGoldDropped MessageType = "gold_dropped"
)

var knownTypes = map[MessageType]struct{}{
	TypeConnect: {}, TypeDisconnect: {}, TypeConnectionAccepted: {}, TypeConnectionRejected: {},
	TypeSessionStart: {}, TypeSessionSeed: {}, TypePlayerJoined: {}, TypePlayerLeft: {},
	TypeLobbyComplete: {}, TypeJobSelected: {}, TypeJobDeselected: {}, TypeJobSelectionComplete: {},
	TypeTurnChanged: {}, TypeRequestJob: {}, TypeReleaseJob: {}, TypePassivesSet: {}, TypeGameStart: {},
	TypeCharacterDeath: {}, TypeCharacterRevival: {}, TypePlayerMarkUpdate: {},
	TypePlayerMove: {}, TypeMoveRequest: {}, TypePositionSync: {}, TypeCombatStart: {},
	TypeCombatJoin: {}, TypeCombatAction: {}, TypeActionSelectionStart: {},
	TypeCharacterStatesUpdate: {}, TypeStateSync: {}, TypeStateUpdate: {},
	TypeInventoryUpdate: {}, TypeItemUsed: {}, TypeItemPickedUp: {},
	TypeEnemyMove: {}, TypeNPCMove: {}, TypeCombatAutoJoin: {},
	TypePingRequest: {}, TypePongResponse: {}, TypeChatMessage: {},
	TypeDungeonData: {}, TypeFloorChange: {},
	TypeHarvest: {}, TypeItemDropped: {}, TypeGoldDropped: {},
}

// NormalizeType 规范化类型标签
// 兼容旧版带点号的写法（"MessageType.CONNECT" -> "connect"）
func NormalizeType(raw string) (MessageType, error) {
	s := raw
	if strings.Contains(s, "MessageType.") {
		parts := strings.Split(s, ".")
		s = parts[len(parts)-1]
	}
	t := MessageType(strings.ToLower(s))
	if _, ok := knownTypes[t]; !ok {
		return "", &Error{Op: "normalize", Reason: fmt.Sprintf("unknown message type %q", raw)}
	}
	return t, nil
}

// NetworkMessage 网络消息信封，构造后不再修改
type NetworkMessage struct {
	Type      MessageType    `json:"type"`
	PlayerID  string         `json:"player_id,omitempty"`
	Timestamp float64        `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// New 创建消息，时间戳取当前时间（秒，含小数）
func New(t MessageType, playerID string, data map[string]any) *NetworkMessage {
	if data == nil {
		data = map[string]any{}
	}
	return &NetworkMessage{
		Type:      t,
		PlayerID:  playerID,
		Timestamp: Now(),
		Data:      data,
	}
}

// Now 当前 Unix 时间戳（秒，float64）
func Now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// Error 协议层错误：消息畸形或类型不可识别
type Error struct {
	Op     string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol %s: %s", e.Op, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }
