package transport

import (
	"sync"

	"go.uber.org/zap"

	"dungeonnet/protocol"
)

// Handler 消息处理回调；senderID 为消息来源玩家 ID（主机侧），客户端侧固定为 "host"
type Handler func(msg *protocol.NetworkMessage, senderID string)

// registry 按消息类型分发的处理表
type registry struct {
	mu       sync.RWMutex
	handlers map[protocol.MessageType][]Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[protocol.MessageType][]Handler)}
}

// register 注册处理函数；同一类型可挂多个处理函数，按注册顺序调用
func (r *registry) register(t protocol.MessageType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = append(r.handlers[t], h)
}

// dispatch 分发消息；处理函数 panic 只记日志，不拖垮接收循环
func (r *registry) dispatch(msg *protocol.NetworkMessage, senderID string, log *zap.SugaredLogger) {
	r.mu.RLock()
	hs := r.handlers[msg.Type]
	r.mu.RUnlock()
	for _, h := range hs {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					log.Errorf("handler panic for %s: %v", msg.Type, rec)
				}
			}()
			h(msg, senderID)
		}()
	}
}
