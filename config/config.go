package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config 联机核心配置；所有值可由环境变量注入，便于测试
// 同步周期和合流半径支持运行中热更新，读写走方法
type Config struct {
	mu sync.RWMutex

	// 监听端口（被占用时向后扫描）
	PreferredPort    int `env:"DUNGEONNET_PORT" envDefault:"5000"`
	PortScanAttempts int `env:"DUNGEONNET_PORT_SCAN_ATTEMPTS" envDefault:"100"`

	// 握手
	HandshakeTimeout time.Duration `env:"DUNGEONNET_HANDSHAKE_TIMEOUT" envDefault:"10s"`

	// 同步周期
	SyncIntervalPosition time.Duration `env:"DUNGEONNET_SYNC_POSITION" envDefault:"100ms"`
	SyncIntervalEnemy    time.Duration `env:"DUNGEONNET_SYNC_ENEMY" envDefault:"500ms"`
	JoinCheckInterval    time.Duration `env:"DUNGEONNET_JOIN_CHECK" envDefault:"500ms"`
	PingInterval         time.Duration `env:"DUNGEONNET_PING_INTERVAL" envDefault:"1s"`

	// 压缩
	MessageCompression   bool `env:"DUNGEONNET_COMPRESSION" envDefault:"true"`
	CompressionThreshold int  `env:"DUNGEONNET_COMPRESSION_THRESHOLD" envDefault:"1024"`

	// 战斗合流
	ParticipationRadius int `env:"DUNGEONNET_JOIN_RADIUS" envDefault:"5"`

	// 战斗节奏
	ActionWaitTime time.Duration `env:"DUNGEONNET_ACTION_WAIT" envDefault:"1500ms"`

	// 网络质量
	MaxLatencyAllowed time.Duration `env:"DUNGEONNET_MAX_LATENCY" envDefault:"500ms"`

	// 下游奖励结算读取
	ExpDivideByParticipants bool `env:"DUNGEONNET_EXP_DIVIDE" envDefault:"true"`

	// 日志文件路径
	LogFile string `env:"DUNGEONNET_LOG_FILE" envDefault:"dungeonnet.log"`
}

// PositionInterval 位置快照周期
func (c *Config) PositionInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SyncIntervalPosition
}

// SetPositionInterval 热更新位置快照周期
func (c *Config) SetPositionInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SyncIntervalPosition = d
}

// EnemyInterval 敌人批量广播周期
func (c *Config) EnemyInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SyncIntervalEnemy
}

// SetEnemyInterval 热更新敌人批量广播周期
func (c *Config) SetEnemyInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SyncIntervalEnemy = d
}

// JoinInterval 合流扫描周期
func (c *Config) JoinInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.JoinCheckInterval
}

// SetJoinInterval 热更新合流扫描周期
func (c *Config) SetJoinInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.JoinCheckInterval = d
}

// JoinRadius 合流判定半径（曼哈顿距离）
func (c *Config) JoinRadius() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ParticipationRadius
}

// SetJoinRadius 热更新合流判定半径
func (c *Config) SetJoinRadius(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ParticipationRadius = n
}

// Load 从环境变量加载配置，未设置的字段用默认值
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Default 返回全默认配置（测试用）
func Default() *Config {
	return &Config{
		PreferredPort:           5000,
		PortScanAttempts:        100,
		HandshakeTimeout:        10 * time.Second,
		SyncIntervalPosition:    100 * time.Millisecond,
		SyncIntervalEnemy:       500 * time.Millisecond,
		JoinCheckInterval:       500 * time.Millisecond,
		PingInterval:            time.Second,
		MessageCompression:      true,
		CompressionThreshold:    1024,
		ParticipationRadius:     5,
		ActionWaitTime:          1500 * time.Millisecond,
		MaxLatencyAllowed:       500 * time.Millisecond,
		ExpDivideByParticipants: true,
		LogFile:                 "dungeonnet.log",
	}
}
