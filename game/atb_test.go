package game

import (
	"testing"
	"time"
)

// advance 推满一个子弹时间周期（4 次调用推进 1 次）
func advance(a *MultiplayerATB, delta float64) {
	for i := 0; i < bulletTimeInterval; i++ {
		a.Update(delta)
	}
}

func TestGaugeFillsAtQuarterSpeed(t *testing.T) {
	a := NewMultiplayerATB(1500 * time.Millisecond)
	c := &Character{ID: "c", Alive: true}
	a.AddCombatant(c, 20)

	// 4 次 Update 只有最后一次真正推进
	a.Update(1.0)
	a.Update(1.0)
	a.Update(1.0)
	if g, _ := a.Gauge(c); g.Current != 0 {
		t.Fatalf("bullet time must swallow first 3 updates, got %.1f", g.Current)
	}
	a.Update(1.0)
	g, ok := a.Gauge(c)
	if !ok || g.Current != 2.0 {
		t.Fatalf("expected 2.0 after one effective update, got %.1f", g.Current)
	}
}

func TestGaugeCapsAtMaxAndAppearsInActionOrder(t *testing.T) {
	a := NewMultiplayerATB(1500 * time.Millisecond)
	fast := &Character{ID: "fast", Alive: true}
	slow := &Character{ID: "slow", Alive: true}
	a.AddCombatant(fast, 1000)
	a.AddCombatant(slow, 1)

	advance(a, 10)
	if g, _ := a.Gauge(fast); g.Current != DefaultGaugeMax || !g.CanAct {
		t.Fatalf("fast gauge should be capped full, got %.1f", g.Current)
	}
	ready := a.ActionOrder()
	if len(ready) != 1 || ready[0] != fast {
		t.Fatalf("only fast should be ready, got %d", len(ready))
	}

	a.ConsumeATB(fast)
	if g, _ := a.Gauge(fast); g.Current != 0 {
		t.Fatal("consume must reset gauge")
	}
	if len(a.ActionOrder()) != 0 {
		t.Fatal("consumed actor must leave the ready list")
	}
}

func TestDeadCombatantGaugeResets(t *testing.T) {
	a := NewMultiplayerATB(1500 * time.Millisecond)
	c := &Character{ID: "c", Alive: true}
	a.AddCombatant(c, 50)
	advance(a, 10)
	if g, _ := a.Gauge(c); g.Current == 0 {
		t.Fatal("setup: gauge should have charge")
	}

	c.Alive = false
	advance(a, 1)
	if g, _ := a.Gauge(c); g.Current != 0 {
		t.Fatalf("dead combatant gauge must drop to 0, got %.1f", g.Current)
	}
}

func TestActionConfirmPausesAllGauges(t *testing.T) {
	a := NewMultiplayerATB(1500 * time.Millisecond)
	clock := time.Now()
	a.now = func() time.Time { return clock }

	c := &Character{ID: "c", Alive: true}
	a.AddCombatant(c, 20)

	a.SetPlayerSelecting("p1", true)
	if !a.IsSelecting("p1") {
		t.Fatal("p1 should be selecting")
	}
	// 确认行动：进入 1.5 秒全场停顿
	a.SetPlayerSelecting("p1", false)

	advance(a, 1)
	if g, _ := a.Gauge(c); g.Current != 0 {
		t.Fatalf("gauges must pause during action wait, got %.1f", g.Current)
	}

	clock = clock.Add(2 * time.Second)
	advance(a, 1)
	if g, _ := a.Gauge(c); g.Current != 2.0 {
		t.Fatalf("gauges must resume after action wait, got %.1f", g.Current)
	}
}

func TestSelectingFalseWithoutSelectingDoesNotPause(t *testing.T) {
	a := NewMultiplayerATB(1500 * time.Millisecond)
	c := &Character{ID: "c", Alive: true}
	a.AddCombatant(c, 20)

	// 没选过指令的玩家发 false 不应触发停顿
	a.SetPlayerSelecting("p1", false)
	advance(a, 1)
	if g, _ := a.Gauge(c); g.Current != 2.0 {
		t.Fatalf("no-op confirm must not pause, got %.1f", g.Current)
	}
}

func TestRemoveCombatant(t *testing.T) {
	a := NewMultiplayerATB(1500 * time.Millisecond)
	c := &Character{ID: "c", Alive: true}
	a.AddCombatant(c, 1000)
	advance(a, 10)
	a.RemoveCombatant(c)
	if _, ok := a.Gauge(c); ok {
		t.Fatal("removed combatant must have no gauge")
	}
	if len(a.ActionOrder()) != 0 {
		t.Fatal("removed combatant must leave the order")
	}
}
