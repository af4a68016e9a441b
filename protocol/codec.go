package protocol

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"sync/atomic"
)

// compressedMarker 压缩帧前缀，收端看到它先解压再解析 JSON
var compressedMarker = []byte("COMPRESSED:")

// DefaultCompressionThreshold 默认压缩阈值（1 KiB）
const DefaultCompressionThreshold = 1024

// Codec 消息编解码器；压缩开关与阈值由配置注入。
// 阈值支持运行中热更新，读写走原子操作。
type Codec struct {
	Compression bool
	threshold   atomic.Int64
}

// NewCodec 创建编解码器
func NewCodec(compression bool, threshold int) *Codec {
	if threshold <= 0 {
		threshold = DefaultCompressionThreshold
	}
	c := &Codec{Compression: compression}
	c.threshold.Store(int64(threshold))
	return c
}

// Threshold 当前压缩阈值（字节）
func (c *Codec) Threshold() int {
	return int(c.threshold.Load())
}

// SetThreshold 更新压缩阈值，非正值忽略
func (c *Codec) SetThreshold(n int) {
	if n <= 0 {
		return
	}
	c.threshold.Store(int64(n))
}

// Encode 序列化消息；超过阈值时 gzip 压缩并加前缀
func (c *Codec) Encode(msg *NetworkMessage) ([]byte, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, &Error{Op: "encode", Reason: "marshal failed", Err: err}
	}
	if !c.Compression || len(raw) <= c.Threshold() {
		return raw, nil
	}

	var buf bytes.Buffer
	buf.Write(compressedMarker)
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, &Error{Op: "encode", Reason: "gzip write failed", Err: err}
	}
	if err := zw.Close(); err != nil {
		return nil, &Error{Op: "encode", Reason: "gzip close failed", Err: err}
	}
	return buf.Bytes(), nil
}

// Decode 反序列化消息；识别压缩前缀并校验类型标签
func (c *Codec) Decode(data []byte) (*NetworkMessage, error) {
	if bytes.HasPrefix(data, compressedMarker) {
		zr, err := gzip.NewReader(bytes.NewReader(data[len(compressedMarker):]))
		if err != nil {
			return nil, &Error{Op: "decode", Reason: "gzip reader failed", Err: err}
		}
		raw, err := io.ReadAll(zr)
		_ = zr.Close()
		if err != nil {
			return nil, &Error{Op: "decode", Reason: "gzip read failed", Err: err}
		}
		data = raw
	}

	var wire struct {
		Type      string         `json:"type"`
		PlayerID  string         `json:"player_id"`
		Timestamp float64        `json:"timestamp"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &Error{Op: "decode", Reason: "malformed json", Err: err}
	}
	t, err := NormalizeType(wire.Type)
	if err != nil {
		return nil, err
	}
	msg := &NetworkMessage{
		Type:      t,
		PlayerID:  wire.PlayerID,
		Timestamp: wire.Timestamp,
		Data:      wire.Data,
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = Now()
	}
	if msg.Data == nil {
		msg.Data = map[string]any{}
	}
	return msg, nil
}
