package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"TChat/data/database/mgo/mongoutil"
	"TChat/global"
	"TChat/logger"
	"TChat/module/chat/store"
	"TChat/service/chat"
	"TChat/service/natsx"
	"TChat/service/storage"
	"TChat/service/storage/redis"
	"TChat/tools/ids"
	"TChat/tools/security"
)

func main() {
	cfg := global.LoadConfig()
	ids.SetNodeID(1)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	mongoCli, err := mongoutil.NewMongoDB(ctx, &mongoutil.Config{
		Uri:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
	})
	cancel()
	if err != nil {
		logger.Errorf("[BOOT] mongo connect: %v", err)
		os.Exit(1)
	}

	if err := redis.InitRedis(redis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}); err != nil {
		logger.Errorf("[BOOT] redis connect: %v", err)
		os.Exit(1)
	}
	online := storage.NewOnlineStore(redis.GetRedis(), cfg.GatewayID, cfg.PongTimeout)

	// Push transport is best effort; the gateway runs without it.
	var push chat.PushNotifier = chat.NopPushNotifier{}
	var natsCli *natsx.NatsxClient
	if nc, nerr := natsx.New(natsx.Config{Servers: cfg.NatsServers, Name: cfg.GatewayID}); nerr != nil {
		logger.Warnf("[BOOT] nats unavailable, push disabled: %v", nerr)
	} else {
		natsCli = nc
		push = chat.NewNatsPushNotifier(nc, cfg.PushSubject)
	}

	db := mongoCli.GetDB()
	rooms := store.NewMongoRoomStore(db)
	msgs := store.NewMongoMessageStore(db)

	registry := chat.NewPresenceRegistry()
	broadcaster := chat.NewBroadcaster(registry, 0)
	guard := chat.NewRoomAccessGuard()
	ops := chat.NewMessageOps(rooms, msgs, registry, guard, broadcaster, push, cfg.AutoReadDelay)
	receipts := chat.NewReadReceiptTracker(rooms, msgs, guard, broadcaster)
	session := chat.NewSessionLifecycle(registry, broadcaster, online,
		security.DefaultOptions([]byte(cfg.JWTSecret)), cfg.SweepInterval)
	server := chat.NewServer(cfg, registry, broadcaster, session, ops, receipts, guard, rooms)

	session.StartSweeper()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", server.HandleWS)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "gateway": cfg.GatewayID})
	})

	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	go func() {
		logger.Infof("[BOOT] gateway %s listening on %s", cfg.GatewayID, cfg.ListenAddr)
		if serr := httpSrv.ListenAndServe(); serr != nil && serr != http.ErrServerClosed {
			logger.Errorf("[BOOT] listen: %v", serr)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("[BOOT] shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	_ = httpSrv.Shutdown(shutCtx)

	session.Stop()
	broadcaster.Stop()
	if natsCli != nil {
		natsCli.Close()
	}
	if cerr := redis.CloseRedis(); cerr != nil {
		logger.Warnf("[BOOT] redis close: %v", cerr)
	}
	if cerr := mongoCli.Close(shutCtx); cerr != nil {
		logger.Warnf("[BOOT] mongo close: %v", cerr)
	}
}
