package main

import (
	"context"
	"net/http"
	"time"

	"PairLink/config"
	"PairLink/internal/assistant"
	"PairLink/internal/matchmaker"
	"PairLink/internal/room"
	"PairLink/internal/storage"
	"PairLink/internal/utils"
	"PairLink/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.Load()
	utils.Init()

	//-------------------------------------------------------
	// 1. Wait queue backend (redis is optional)
	//-------------------------------------------------------
	var queue matchmaker.Queue
	if config.C.Redis.Enabled {
		if err := storage.InitRedis(
			config.C.Redis.Addr,
			config.C.Redis.Password,
			config.C.Redis.DB,
		); err != nil {
			utils.Error.Fatalf("Redis init failed: %v", err)
		}
		queue = matchmaker.NewRedisQueue(storage.Rdb)
		utils.Print.Info("wait queue on redis", "addr", config.C.Redis.Addr)
	} else {
		queue = matchmaker.NewMemoryQueue()
		utils.Print.Info("wait queue in memory")
	}

	//-------------------------------------------------------
	// 2. Gin + CORS
	//-------------------------------------------------------
	r := gin.Default()

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}
	if config.C.Server.CorsOrigin == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{config.C.Server.CorsOrigin}
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	//-------------------------------------------------------
	// 3. Hub (must run before any client connects)
	//-------------------------------------------------------
	hub := websocket.NewHub()
	go hub.Run()

	//-------------------------------------------------------
	// 4. Assistant gateway
	//-------------------------------------------------------
	gw := assistant.NewGateway(
		config.C.Assistant.APIKey,
		config.C.Assistant.Model,
		config.C.Assistant.Endpoint,
		time.Duration(config.C.Assistant.TimeoutSeconds)*time.Second,
	)

	//-------------------------------------------------------
	// 5. Rooms + matchmaker
	//-------------------------------------------------------
	rooms := room.NewRegistry(hub)
	svc := matchmaker.NewService(queue, rooms, hub, gw)

	handler := matchmaker.NewEventHandler(svc)
	hub.OnIncoming = handler.Handle
	hub.OnClosed = func(id string) {
		svc.Disconnect(context.Background(), id)
	}

	//-------------------------------------------------------
	// 6. WebSocket entry
	//-------------------------------------------------------
	r.GET("/ws", websocket.ServeWS(hub, func(id, name string) {
		svc.Connect(context.Background(), id, name)
	}))

	//-------------------------------------------------------
	// 7. Serve
	//-------------------------------------------------------
	utils.Print.Info("server running", "port", config.C.Server.Port)
	if err := r.Run(config.C.Server.Port); err != nil {
		utils.Error.Fatalf("server stopped: %v", err)
	}
}
