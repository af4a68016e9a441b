package netsync

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"dungeonnet/game"
	"dungeonnet/session"
)

const (
	// TicksPerSecond 主机世界推进频率（20 TPS）
	TicksPerSecond = 20
)

var tickInterval = time.Duration(1000/TicksPerSecond) * time.Millisecond // 50ms

// EnemyDriver 主机的敌人 AI 回调：推进一步并返回当前敌人位置
type EnemyDriver func() []EnemyState

// JoinHandler 合流回调：游戏层把玩家的角色并入战斗后负责落账
type JoinHandler func(cand JoinCandidate)

// Loop 主机侧同步循环：按 Tick 驱动位置快照、敌人批量广播、
// 合流扫描和行动条推进；各协议自己按周期节流
type Loop struct {
	sess     *session.Session
	movement *Movement
	enemies  *EnemySync
	joiner   *CombatJoin
	gauge    *game.MultiplayerATB
	log      *zap.SugaredLogger

	driveEnemies EnemyDriver
	onJoin       JoinHandler

	mu       sync.Mutex
	started  bool
	lastTick time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLoop 创建同步循环；敌人 AI 与合流回调可为 nil（对应子系统不驱动）
func NewLoop(sess *session.Session, movement *Movement, enemies *EnemySync, joiner *CombatJoin, gauge *game.MultiplayerATB, log *zap.SugaredLogger) *Loop {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Loop{
		sess:     sess,
		movement: movement,
		enemies:  enemies,
		joiner:   joiner,
		gauge:    gauge,
		log:      log,
		stop:     make(chan struct{}),
	}
}

// SetEnemyDriver 挂敌人 AI 回调
func (l *Loop) SetEnemyDriver(d EnemyDriver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.driveEnemies = d
}

// SetJoinHandler 挂合流回调
func (l *Loop) SetJoinHandler(h JoinHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onJoin = h
}

// Start 启动 Tick 循环（重复调用只生效一次）
func (l *Loop) Start() {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.lastTick = time.Now()
	l.mu.Unlock()

	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-l.stop:
				return
			case now := <-ticker.C:
				l.tick(now)
			}
		}
	}()
	l.log.Infof("sync loop started at %d tps", TicksPerSecond)
}

// tick 单次推进：快照 → 敌人 → 合流 → 行动条
func (l *Loop) tick(now time.Time) {
	l.mu.Lock()
	delta := now.Sub(l.lastTick).Seconds()
	l.lastTick = now
	driver, onJoin := l.driveEnemies, l.onJoin
	l.mu.Unlock()

	if l.movement != nil {
		l.movement.SyncPositions(now)
	}
	if l.enemies != nil && driver != nil && l.enemies.CanMoveEnemies(now) {
		l.enemies.SyncEnemyPositions(driver())
	}
	if l.joiner != nil && onJoin != nil {
		for _, cand := range l.joiner.CheckAutoJoin(now, l.sess.Players()) {
			onJoin(cand)
		}
	}
	if l.gauge != nil {
		l.gauge.Update(delta)
	}
}

// Stop 停止循环
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
