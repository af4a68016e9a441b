package game

// Mode 游戏模式上下文：单机/联机、本机是否为主机、本地玩家 ID
// 显式传入各组件，避免全局单例
type Mode struct {
	Multiplayer   bool
	IsHost        bool
	LocalPlayerID string
}

// SinglePlayer 单机模式
func SinglePlayer() *Mode {
	return &Mode{Multiplayer: false, IsHost: true}
}

// HostMode 联机主机模式
func HostMode(localPlayerID string) *Mode {
	return &Mode{Multiplayer: true, IsHost: true, LocalPlayerID: localPlayerID}
}

// ClientMode 联机客户端模式
func ClientMode(localPlayerID string) *Mode {
	return &Mode{Multiplayer: true, IsHost: false, LocalPlayerID: localPlayerID}
}

// IsLocal 判断指定玩家是否为本地玩家
func (m *Mode) IsLocal(playerID string) bool {
	return playerID != "" && playerID == m.LocalPlayerID
}
