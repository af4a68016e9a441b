package game

// ActionKind 战斗行动类型
type ActionKind string

const (
	ActionAttack ActionKind = "attack"
	ActionSkill  ActionKind = "skill"
	ActionItem   ActionKind = "item"
	ActionDefend ActionKind = "defend"
	ActionFlee   ActionKind = "flee"
)

// ActionResult 战斗结算结果摘要（由结算引擎返回，仅做广播用）
type ActionResult struct {
	Success   bool     `json:"success"`
	Damage    int      `json:"damage,omitempty"`
	Healing   int      `json:"healing,omitempty"`
	BRVChange int      `json:"brv_change,omitempty"`
	Statuses  []string `json:"statuses,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// ActionResolver 战斗结算引擎接口（外部协作者）
type ActionResolver interface {
	// ExecuteAction 执行一次已解析好引用的行动
	ExecuteAction(actor *Character, kind ActionKind, target *Character, skillID, itemID string) (*ActionResult, error)
}

// GaugeState 行动条读数（广播快照用）
type GaugeState struct {
	Current float64 `json:"current"`
	Max     float64 `json:"max"`
	CanAct  bool    `json:"can_act"`
}

// ActorGauge 行动条（ATB）服务接口（外部协作者）
type ActorGauge interface {
	// ActionOrder 返回当前可行动单位，按行动顺序排列
	ActionOrder() []*Character
	// SetPlayerSelecting 标记玩家是否处于指令选择中（子弹时间）
	SetPlayerSelecting(playerID string, selecting bool)
	// ConsumeATB 行动后清空该单位的行动条
	ConsumeATB(actor *Character)
	// Gauge 读取单位的行动条状态
	Gauge(actor *Character) (GaugeState, bool)
}

// ItemSlot 背包槽位
type ItemSlot struct {
	Index  int
	ItemID string
	Name   string
	Count  int
}

// Inventory 背包服务接口（外部协作者）
type Inventory interface {
	FindItemByID(id string) (*ItemSlot, bool)
}

// CombatRoster 一场战斗的在场单位名册（由战斗引擎维护，主机权威）
type CombatRoster interface {
	// FindCombatant 按 ID 查找在场单位，找不到返回 nil
	FindCombatant(id string) *Character
	// Combatants 返回全部在场单位（我方 + 敌方）
	Combatants() []*Character
	// Phase 当前战斗阶段
	Phase() string
	// TurnCount 回合计数
	TurnCount() int
	// SetPhase 应用主机快照里的战斗阶段（客户端侧）
	SetPhase(phase string)
	// SetTurnCount 应用主机快照里的回合计数（客户端侧）
	SetTurnCount(n int)
}
