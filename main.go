package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"dungeonnet/config"
	"dungeonnet/game"
	"dungeonnet/logging"
	"dungeonnet/netsync"
	"dungeonnet/session"
	"dungeonnet/transport"
)

// DungeonNet 入口：主机模式开房监听，客户端模式连入指定主机
func main() {
	var (
		hostMode bool
		joinAddr string
		joinPort int
		name     string
		players  int
	)
	flag.BoolVar(&hostMode, "host", false, "host a session")
	flag.StringVar(&joinAddr, "join", "", "host address to join, e.g. 192.168.1.10")
	flag.IntVar(&joinPort, "port", 5000, "host port to join")
	flag.StringVar(&name, "name", "player", "player display name")
	flag.IntVar(&players, "players", session.MaxPlayers, "max players when hosting (2-4)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	// 使用第三方 zap 日志库写入滚动日志文件
	log, err := logging.Init(cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer logging.Sync()

	localID := uuid.NewString()

	switch {
	case hostMode:
		sess, err := session.New(players, log)
		if err != nil {
			log.Fatalf("create session: %v", err)
		}
		sess.AddPlayer(session.NewPlayer(localID, name))

		h := transport.NewHost(cfg, sess, localID, log)
		mode := game.HostMode(localID)
		movement := netsync.NewMovement(sess, h, mode, cfg, log)
		enemies := netsync.NewEnemySync(h, mode, cfg, log)
		joiner := netsync.NewCombatJoin(cfg, log)
		ps := netsync.NewPlayerState(h, mode, log)
		netsync.NewRevival(ps, h, nil, log)

		if err := h.Start(); err != nil {
			log.Fatalf("start host: %v", err)
		}
		defer h.Stop()

		loop := netsync.NewLoop(sess, movement, enemies, joiner, nil, log)
		loop.Start()
		defer loop.Stop()
		log.Infof("session %s open, tell friends to join %s:%d", sess.ID, h.LocalIP(), h.Port())

	case joinAddr != "":
		sess, err := session.New(session.MaxPlayers, log)
		if err != nil {
			log.Fatalf("create session: %v", err)
		}
		sess.AddPlayer(session.NewPlayer(localID, name))

		c := transport.NewClient(cfg, localID, log)
		mode := game.ClientMode(localID)
		// 会话簿记：种子、玩家列表、离开与复活消息维护本地名册镜像
		netsync.NewSessionSync(sess, c, mode, log)
		netsync.NewMovement(sess, c, mode, cfg, log)
		netsync.NewEnemySync(c, mode, cfg, log)
		ps := netsync.NewPlayerState(c, mode, log)
		netsync.NewRevival(ps, c, nil, log)

		if err := c.Connect(joinAddr, joinPort, name); err != nil {
			log.Fatalf("join %s:%d: %v", joinAddr, joinPort, err)
		}
		defer c.Close()
		log.Infof("joined session %s as %s", c.SessionID(), name)

	default:
		flag.Usage()
		os.Exit(2)
	}

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
}
