package netsync

import (
	"testing"
	"time"

	"dungeonnet/config"
	"dungeonnet/game"
	"dungeonnet/logging"
	"dungeonnet/protocol"
)

func TestLoopDrivesHostProtocols(t *testing.T) {
	sess := newTestSession(t, "host", "c1")
	sess.GetPlayer("c1").UpdatePosition(11, 10)
	bus := newFakeBus()
	mode := game.HostMode("host")
	cfg := config.Default()

	movement := NewMovement(sess, bus, mode, cfg, logging.Nop())
	enemies := NewEnemySync(bus, mode, cfg, logging.Nop())
	joiner := NewCombatJoin(cfg, logging.Nop())
	joiner.RegisterCombat("combat-1", protocol.Position{X: 10, Y: 10})

	joined := make(chan JoinCandidate, 4)
	loop := NewLoop(sess, movement, enemies, joiner, nil, logging.Nop())
	loop.SetEnemyDriver(func() []EnemyState {
		return []EnemyState{{ID: "goblin-1", X: 1, Y: 1}}
	})
	loop.SetJoinHandler(func(cand JoinCandidate) {
		joiner.MarkPlayerJoined(cand.CombatID, cand.PlayerID)
		joined <- cand
	})

	loop.Start()
	defer loop.Stop()

	select {
	case cand := <-joined:
		if cand.PlayerID != "c1" || cand.CombatID != "combat-1" {
			t.Fatalf("wrong join candidate %+v", cand)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("auto join never fired")
	}

	// 循环跑了至少一个敌人周期和若干个快照周期
	deadline := time.Now().Add(3 * time.Second)
	var sawSnapshot, sawEnemies bool
	for time.Now().Before(deadline) && !(sawSnapshot && sawEnemies) {
		bus.mu.Lock()
		for _, rec := range bus.broadcasts {
			switch rec.msg.Type {
			case protocol.TypePositionSync:
				sawSnapshot = true
			case protocol.TypeEnemyMove:
				sawEnemies = true
			}
		}
		bus.mu.Unlock()
		time.Sleep(20 * time.Millisecond)
	}
	if !sawSnapshot {
		t.Fatal("loop never broadcast a position snapshot")
	}
	if !sawEnemies {
		t.Fatal("loop never broadcast enemy positions")
	}
}

func TestLoopStartIdempotent(t *testing.T) {
	sess := newTestSession(t, "host")
	loop := NewLoop(sess, nil, nil, nil, nil, logging.Nop())
	loop.Start()
	loop.Start() // 第二次无效果
	loop.Stop()
	loop.Stop()
}
