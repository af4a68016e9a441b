package netsync

import (
	"sync"

	"dungeonnet/protocol"
	"dungeonnet/transport"
)

// fakeBus 内存消息总线，测试里代替真实网络层
type fakeBus struct {
	mu       sync.Mutex
	handlers map[protocol.MessageType][]transport.Handler

	sent       []*protocol.NetworkMessage
	broadcasts []broadcastRecord
}

type broadcastRecord struct {
	msg     *protocol.NetworkMessage
	exclude string
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[protocol.MessageType][]transport.Handler)}
}

func (b *fakeBus) Send(msg *protocol.NetworkMessage, targetID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, msg)
}

func (b *fakeBus) Broadcast(msg *protocol.NetworkMessage, exclude string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcasts = append(b.broadcasts, broadcastRecord{msg: msg, exclude: exclude})
}

func (b *fakeBus) RegisterHandler(t protocol.MessageType, h transport.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// deliver 模拟收到一条来自 senderID 的消息
// 先走一遍编解码，让字段类型和真实收包一致（数字变 float64 等）
func (b *fakeBus) deliver(msg *protocol.NetworkMessage, senderID string) {
	codec := protocol.NewCodec(false, 0)
	raw, err := codec.Encode(msg)
	if err != nil {
		panic(err)
	}
	decoded, err := codec.Decode(raw)
	if err != nil {
		panic(err)
	}
	b.mu.Lock()
	hs := append([]transport.Handler(nil), b.handlers[decoded.Type]...)
	b.mu.Unlock()
	for _, h := range hs {
		h(decoded, senderID)
	}
}

func (b *fakeBus) broadcastCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.broadcasts)
}

func (b *fakeBus) lastBroadcast() *broadcastRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.broadcasts) == 0 {
		return nil
	}
	return &b.broadcasts[len(b.broadcasts)-1]
}
