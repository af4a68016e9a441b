package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// jsonEqual 按 JSON 语义比较两个消息（避免 int/float64 差异）
func jsonEqual(t *testing.T, a, b *NetworkMessage) bool {
	t.Helper()
	ja, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal a: %v", err)
	}
	jb, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal b: %v", err)
	}
	return bytes.Equal(ja, jb)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec(false, DefaultCompressionThreshold)

	messages := []*NetworkMessage{
		Connect("p1", "Alice"),
		ConnectionAccepted("p1", "sess-1"),
		ConnectionRejected("p1", "session full"),
		SessionSeed(123456789, "sess-1"),
		PlayerMove("p1", 10, 20),
		MoveRequest("p2", -1, 0),
		PositionSync(map[string]map[string]any{
			"p1": {"x": 1, "y": 2, "timestamp": 3.5},
		}),
		CombatStart("c1", []string{"p1"}, []string{"e1", "e2"}, Position{X: 10, Y: 10}),
		CombatAction("p1", "char-1", map[string]any{"action_type": "attack", "target_id": "e1"}),
		EnemyMove(map[string]map[string]any{"e1": {"x": 4, "y": 5}}),
		NPCMove(map[string]map[string]any{"n1": {"x": 7, "y": 8}}),
		PingRequest("p1"),
		PongResponse("p1", 1234.5),
		Chat("p1", "hello"),
		PlayerMarkUpdate("p1", false),
		CharacterRevival("p1", "char-2", Position{X: 3, Y: 4}),
		GoldDropped(5, 6, 120),
	}

	for _, m := range messages {
		data, err := codec.Encode(m)
		if err != nil {
			t.Fatalf("encode %s: %v", m.Type, err)
		}
		got, err := codec.Decode(data)
		if err != nil {
			t.Fatalf("decode %s: %v", m.Type, err)
		}
		if got.Type != m.Type {
			t.Fatalf("type mismatch: want %s, got %s", m.Type, got.Type)
		}
		if got.PlayerID != m.PlayerID {
			t.Fatalf("player_id mismatch: want %q, got %q", m.PlayerID, got.PlayerID)
		}
		if !jsonEqual(t, m, got) {
			t.Fatalf("round trip mismatch for %s", m.Type)
		}
	}
}

func TestEncodeCompressionThreshold(t *testing.T) {
	codec := NewCodec(true, 1024)

	small := Chat("p1", "hi")
	data, err := codec.Encode(small)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if bytes.HasPrefix(data, compressedMarker) {
		t.Fatal("small message should not be compressed")
	}

	big := Chat("p1", strings.Repeat("a", 4096))
	data, err = codec.Encode(big)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(data, compressedMarker) {
		t.Fatal("big message should be compressed")
	}

	got, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("decode compressed: %v", err)
	}
	if !jsonEqual(t, big, got) {
		t.Fatal("compressed round trip mismatch")
	}
}

func TestEncodeCompressionDisabled(t *testing.T) {
	codec := NewCodec(false, 16)
	big := Chat("p1", strings.Repeat("b", 4096))
	data, err := codec.Encode(big)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if bytes.HasPrefix(data, compressedMarker) {
		t.Fatal("compression disabled but message was compressed")
	}
}

func TestDecodeMalformed(t *testing.T) {
	codec := NewCodec(true, 1024)

	if _, err := codec.Decode([]byte("{not json")); err == nil {
		t.Fatal("malformed json should fail")
	}
	if _, err := codec.Decode([]byte(`{"type":"no_such_type","data":{}}`)); err == nil {
		t.Fatal("unknown type should fail")
	}
	var perr *Error
	_, err := codec.Decode([]byte(`{"type":"no_such_type","data":{}}`))
	if !errors.As(err, &perr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	// 坏的压缩体
	if _, err := codec.Decode(append(append([]byte{}, compressedMarker...), []byte("garbage")...)); err == nil {
		t.Fatal("bad gzip body should fail")
	}
}

func TestNormalizeLegacyType(t *testing.T) {
	tests := []struct {
		raw  string
		want MessageType
	}{
		{"connect", TypeConnect},
		{"MessageType.CONNECT", TypeConnect},
		{"MessageType.PLAYER_MOVE", TypePlayerMove},
		{"POSITION_SYNC", TypePositionSync},
	}
	for _, tt := range tests {
		got, err := NormalizeType(tt.raw)
		if err != nil {
			t.Fatalf("normalize %q: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("normalize %q: want %s, got %s", tt.raw, tt.want, got)
		}
	}
	if _, err := NormalizeType("MessageType.NOPE"); err == nil {
		t.Fatal("unknown legacy tag should fail")
	}
}

func TestDecodeFillsDefaults(t *testing.T) {
	codec := NewCodec(false, 1024)
	got, err := codec.Decode([]byte(`{"type":"ping_request"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Timestamp == 0 {
		t.Fatal("timestamp should be filled")
	}
	if got.Data == nil {
		t.Fatal("data should be non-nil")
	}
}
