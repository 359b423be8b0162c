package main

import (
	"log"

	"github.com/droplog/internal/config"
	"github.com/droplog/internal/db"
	"github.com/droplog/internal/handler"
	"github.com/droplog/internal/middleware"
	"github.com/droplog/internal/router"
	"github.com/droplog/internal/service"
	"github.com/droplog/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	tracker := service.NewTrackerService(storage.NewBlobStore(db.DB))

	// 庆祝通知层：消费达标事件，展示细节由外部界面负责
	tracker.Subscribe(func(event service.TrackerEvent) {
		switch event.Type {
		case service.EventGoalReached:
			log.Printf("goal reached: %dml daily target met (total %dml)", event.Target, event.TodayTotal)
		case service.EventExactHit:
			log.Printf("exact hit: landed precisely on the %dml target", event.Target)
		}
	})

	middleware.InitPrometheus()

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(handler.NewAPI(tracker))
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
