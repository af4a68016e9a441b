// Package netsync 实现各子系统的状态同步协议：移动、敌人、战斗加入、
// 战斗动作与玩家存活标记。所有协议通过 Bus 收发消息，不直接依赖具体连接。
package netsync

import (
	"dungeonnet/protocol"
	"dungeonnet/transport"
)

// Bus 消息总线抽象，主机端与客户端的网络层都实现它。
type Bus interface {
	// Send 发送给指定对端；客户端实现忽略 targetID（只有主机一个对端）
	Send(msg *protocol.NetworkMessage, targetID string)
	// Broadcast 广播给所有对端，exclude 非空时跳过该玩家
	Broadcast(msg *protocol.NetworkMessage, exclude string)
	// RegisterHandler 注册消息处理器
	RegisterHandler(t protocol.MessageType, h transport.Handler)
}
