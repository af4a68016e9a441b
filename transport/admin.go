package transport

import (
	"encoding/json"
	"net/http"
	"time"
)

// handleAdminConfig 提供同步参数的读取与更新（热更新基本规则）
// GET  /admin/config  返回当前配置
// POST /admin/config  以 JSON 载荷更新部分字段
func (h *Host) handleAdminConfig(w http.ResponseWriter, r *http.Request) {
	type cfg struct {
		SyncPositionMs       *int `json:"syncPositionMs,omitempty"`
		SyncEnemyMs          *int `json:"syncEnemyMs,omitempty"`
		JoinCheckMs          *int `json:"joinCheckMs,omitempty"`
		CompressionThreshold *int `json:"compressionThreshold,omitempty"`
		JoinRadius           *int `json:"joinRadius,omitempty"`
	}

	millis := func(d time.Duration) *int {
		v := int(d / time.Millisecond)
		return &v
	}

	switch r.Method {
	case http.MethodGet:
		threshold := h.codec.Threshold()
		radius := h.cfg.JoinRadius()
		cur := cfg{
			SyncPositionMs:       millis(h.cfg.PositionInterval()),
			SyncEnemyMs:          millis(h.cfg.EnemyInterval()),
			JoinCheckMs:          millis(h.cfg.JoinInterval()),
			CompressionThreshold: &threshold,
			JoinRadius:           &radius,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cur)
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.SyncPositionMs != nil {
			h.cfg.SetPositionInterval(time.Duration(*body.SyncPositionMs) * time.Millisecond)
		}
		if body.SyncEnemyMs != nil {
			h.cfg.SetEnemyInterval(time.Duration(*body.SyncEnemyMs) * time.Millisecond)
		}
		if body.JoinCheckMs != nil {
			h.cfg.SetJoinInterval(time.Duration(*body.JoinCheckMs) * time.Millisecond)
		}
		if body.CompressionThreshold != nil {
			h.codec.SetThreshold(*body.CompressionThreshold)
		}
		if body.JoinRadius != nil {
			h.cfg.SetJoinRadius(*body.JoinRadius)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		h.log.Infof("config updated: position=%v enemy=%v joinCheck=%v threshold=%d radius=%d",
			h.cfg.PositionInterval(), h.cfg.EnemyInterval(), h.cfg.JoinInterval(),
			h.codec.Threshold(), h.cfg.JoinRadius())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleMetrics 输出运行指标
// GET /metrics
func (h *Host) handleMetrics(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"port":    h.Port(),
		"players": h.sess.PlayerCount(),
		"metrics": h.metrics.Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
