package transport

import "sync"

const pingWindow = 10 // 滚动窗口大小：取最近 10 次采样

// 延迟状态色标（毫秒）
const (
	PingStatusGood = "green"  // < 100ms
	PingStatusFair = "yellow" // < 300ms
	PingStatusPoor = "red"
)

// pingTracker 每个对端的往返延迟滚动窗口
type pingTracker struct {
	mu      sync.Mutex
	history map[string][]float64 // {player_id: [rtt_ms, ...]}
}

func newPingTracker() *pingTracker {
	return &pingTracker{history: make(map[string][]float64)}
}

// Record 记录一次往返延迟采样（毫秒）
func (p *pingTracker) Record(playerID string, rttMillis float64) {
	if rttMillis < 0 {
		rttMillis = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	h := append(p.history[playerID], rttMillis)
	if len(h) > pingWindow {
		h = h[len(h)-pingWindow:]
	}
	p.history[playerID] = h
}

// Average 最近窗口的平均延迟（毫秒），无采样返回 0
func (p *pingTracker) Average(playerID string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := p.history[playerID]
	if len(h) == 0 {
		return 0
	}
	var sum float64
	for _, v := range h {
		sum += v
	}
	return sum / float64(len(h))
}

// Status 延迟色标（UI 显示用）
func (p *pingTracker) Status(playerID string) string {
	avg := p.Average(playerID)
	switch {
	case avg < 100:
		return PingStatusGood
	case avg < 300:
		return PingStatusFair
	default:
		return PingStatusPoor
	}
}

// Forget 对端断开后清除采样
func (p *pingTracker) Forget(playerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.history, playerID)
}
