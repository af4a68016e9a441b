package game

import "fmt"

// Character 战斗单位（玩家角色或敌人）的网络同步视图
// 战斗结算引擎拥有完整实现，这里只保留同步所需的字段
type Character struct {
	ID      string
	Name    string
	OwnerID string // 所属玩家 ID，敌方单位为空

	CurrentHP  int
	MaxHP      int
	CurrentMP  int
	MaxMP      int
	CurrentBRV int

	Alive    bool
	Statuses []string // 当前持有的状态效果

	// 地图位置（用于缺省 ID 推导与复活落点）
	X, Y int
}

// CharacterID 提取单位 ID；没有 ID 时按位置生成临时 ID
func CharacterID(c *Character) string {
	if c == nil {
		return ""
	}
	if c.ID != "" {
		return c.ID
	}
	return fmt.Sprintf("char_%d_%d", c.X, c.Y)
}
