package netsync

import (
	"errors"
	"testing"
	"time"

	"dungeonnet/game"
	"dungeonnet/logging"
	"dungeonnet/protocol"
)

type fakeRoster struct {
	combatants []*game.Character
	phase      string
	turn       int
}

func (r *fakeRoster) FindCombatant(id string) *game.Character {
	for _, c := range r.combatants {
		if game.CharacterID(c) == id {
			return c
		}
	}
	return nil
}
func (r *fakeRoster) Combatants() []*game.Character { return r.combatants }
func (r *fakeRoster) Phase() string                 { return r.phase }
func (r *fakeRoster) TurnCount() int                { return r.turn }
func (r *fakeRoster) SetPhase(p string)             { r.phase = p }
func (r *fakeRoster) SetTurnCount(n int)            { r.turn = n }

type resolvedCall struct {
	actor  *game.Character
	kind   game.ActionKind
	target *game.Character
}

type fakeResolver struct {
	calls []resolvedCall
	err   error
}

func (f *fakeResolver) ExecuteAction(actor *game.Character, kind game.ActionKind, target *game.Character, skillID, itemID string) (*game.ActionResult, error) {
	f.calls = append(f.calls, resolvedCall{actor: actor, kind: kind, target: target})
	if f.err != nil {
		return nil, f.err
	}
	return &game.ActionResult{Success: true, Damage: 42}, nil
}

type fakeInventory map[string]*game.ItemSlot

func (f fakeInventory) FindItemByID(id string) (*game.ItemSlot, bool) {
	s, ok := f[id]
	return s, ok
}

func combatFixture() (*fakeRoster, *game.MultiplayerATB, *game.Character, *game.Character) {
	hero := &game.Character{ID: "hero-1", Name: "hero", OwnerID: "c1", MaxHP: 100, CurrentHP: 100, MaxMP: 20, CurrentMP: 20, Alive: true}
	orc := &game.Character{ID: "orc-1", Name: "orc", MaxHP: 60, CurrentHP: 60, Alive: true}
	roster := &fakeRoster{combatants: []*game.Character{hero, orc}, phase: "action", turn: 3}
	gauge := game.NewMultiplayerATB(1500 * time.Millisecond)
	gauge.AddCombatant(hero, 10)
	gauge.AddCombatant(orc, 8)
	return roster, gauge, hero, orc
}

func TestHostRejectsForeignActorAction(t *testing.T) {
	roster, gauge, _, _ := combatFixture()
	bus := newFakeBus()
	resolver := &fakeResolver{}
	NewCombatSync(bus, game.HostMode("host"), resolver, roster, gauge, fakeInventory{}, logging.Nop())

	// c2 试图操作 c1 拥有的角色
	bus.deliver(protocol.CombatAction("c2", "hero-1", map[string]any{
		"action_type": "attack",
		"target_id":   "orc-1",
	}), "c2")

	if len(resolver.calls) != 0 {
		t.Fatal("foreign action must not reach the resolver")
	}
	if bus.broadcastCount() != 0 {
		t.Fatal("rejected action must not be broadcast")
	}
}

func TestHostResolvesOwnedActionAndBroadcastsState(t *testing.T) {
	roster, gauge, hero, orc := combatFixture()
	bus := newFakeBus()
	resolver := &fakeResolver{}
	NewCombatSync(bus, game.HostMode("host"), resolver, roster, gauge, fakeInventory{}, logging.Nop())

	bus.deliver(protocol.CombatAction("c1", "hero-1", map[string]any{
		"action_type": "attack",
		"target_id":   "orc-1",
	}), "c1")

	if len(resolver.calls) != 1 {
		t.Fatalf("expected 1 resolver call, got %d", len(resolver.calls))
	}
	if resolver.calls[0].actor != hero || resolver.calls[0].target != orc {
		t.Fatal("resolver got wrong actor/target")
	}
	rec := bus.lastBroadcast()
	if rec == nil || rec.msg.Type != protocol.TypeStateUpdate {
		t.Fatal("expected state_update broadcast")
	}
	data := rec.msg.Data["data"].(map[string]any)
	detail := data["combat_action"].(map[string]any)
	if detail["player_id"] != "c1" || detail["actor_id"] != "hero-1" {
		t.Fatalf("action detail wrong: %v", detail)
	}
	state := data["combat_state"].(map[string]any)
	if state["phase"] != "action" {
		t.Fatalf("snapshot missing phase: %v", state)
	}
	if len(state["combatants"].([]map[string]any)) != 2 {
		t.Fatal("snapshot must list all combatants")
	}
	// 行动后该角色的 ATB 被清空
	if g, ok := gauge.Gauge(hero); !ok || g.Current != 0 {
		t.Fatalf("atb not consumed: %+v", g)
	}
}

func TestUnknownTargetResolvedWithoutTarget(t *testing.T) {
	roster, gauge, _, _ := combatFixture()
	bus := newFakeBus()
	resolver := &fakeResolver{}
	NewCombatSync(bus, game.HostMode("host"), resolver, roster, gauge, fakeInventory{}, logging.Nop())

	bus.deliver(protocol.CombatAction("c1", "hero-1", map[string]any{
		"action_type": "attack",
		"target_id":   "ghost-9",
	}), "c1")

	if len(resolver.calls) != 1 {
		t.Fatal("action with stale target should still resolve")
	}
	if resolver.calls[0].target != nil {
		t.Fatal("stale target id must resolve to nil target")
	}
}

func TestUnknownItemDropsAction(t *testing.T) {
	roster, gauge, _, _ := combatFixture()
	bus := newFakeBus()
	resolver := &fakeResolver{}
	NewCombatSync(bus, game.HostMode("host"), resolver, roster, gauge, fakeInventory{}, logging.Nop())

	bus.deliver(protocol.CombatAction("c1", "hero-1", map[string]any{
		"action_type": "item",
		"item_id":     "potion-404",
	}), "c1")

	if len(resolver.calls) != 0 {
		t.Fatal("unknown item must drop the action")
	}
	if bus.broadcastCount() != 0 {
		t.Fatal("dropped action must not broadcast")
	}
}

func TestResolverErrorSwallowedWithoutBroadcast(t *testing.T) {
	roster, gauge, _, _ := combatFixture()
	bus := newFakeBus()
	resolver := &fakeResolver{err: errors.New("not enough mp")}
	NewCombatSync(bus, game.HostMode("host"), resolver, roster, gauge, fakeInventory{}, logging.Nop())

	bus.deliver(protocol.CombatAction("c1", "hero-1", map[string]any{
		"action_type": "skill",
		"skill_id":    "fire",
	}), "c1")

	if bus.broadcastCount() != 0 {
		t.Fatal("failed action must not broadcast")
	}
}

func TestClientAppliesSnapshotAndSkipsOwnActionDetail(t *testing.T) {
	roster, gauge, hero, _ := combatFixture()
	bus := newFakeBus()
	s := NewCombatSync(bus, game.ClientMode("c1"), nil, roster, gauge, fakeInventory{}, logging.Nop())

	// 客户端发起请求后处于选择等待
	s.RequestAction("hero-1", game.ActionAttack, "orc-1", "", "")
	if !s.IsSelecting("c1") {
		t.Fatal("client should be selecting after request")
	}
	if len(bus.sent) != 1 || bus.sent[0].Type != protocol.TypeCombatAction {
		t.Fatal("request not sent to host")
	}

	// 主机回来的状态更新：覆盖数值，自己的行动详情只解除等待
	bus.deliver(protocol.StateUpdate(map[string]any{
		"combat_action": map[string]any{
			"player_id": "c1",
			"actor_id":  "hero-1",
		},
		"combat_state": map[string]any{
			"phase":      "action",
			"turn_count": float64(4),
			"combatants": []any{
				map[string]any{
					"id":         "hero-1",
					"current_hp": float64(55),
					"max_hp":     float64(100),
					"current_mp": float64(10),
					"max_mp":     float64(20),
					"is_alive":   true,
				},
				map[string]any{
					"id":         "stranger-7",
					"current_hp": float64(1),
				},
			},
		},
	}), "host")

	if s.IsSelecting("c1") {
		t.Fatal("own action echo must clear selecting")
	}
	if hero.CurrentHP != 55 || hero.CurrentMP != 10 {
		t.Fatalf("snapshot not applied: hp=%d mp=%d", hero.CurrentHP, hero.CurrentMP)
	}
	if roster.turn != 4 {
		t.Fatalf("turn count not applied: %d", roster.turn)
	}
}
