package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-file-vault/internal/api"
	"go-file-vault/internal/middleware"
	"go-file-vault/internal/notify"
	"go-file-vault/internal/repository"
	"go-file-vault/internal/service"
	"go-file-vault/pkg/config"
	"go-file-vault/pkg/db"
	"go-file-vault/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 初始化配置
	if err := config.Init(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.InitLogger("info", false); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 初始化数据库连接
	if err := db.InitDB(config.GlobalConfig.Database.DSN); err != nil {
		logger.L.Fatal("Failed to initialize database", zap.Error(err))
	}

	// 创建通知Hub
	hub, err := notify.CreateHub()
	if err != nil {
		logger.L.Fatal("Failed to create notification hub", zap.Error(err))
	}
	if err := notify.StartHub(hub); err != nil {
		logger.L.Fatal("Failed to start notification hub", zap.Error(err))
	}

	// 组装存储库和服务
	userRepo := repository.NewUserRepository()
	fileRepo := repository.NewFileRepository()

	keyService := service.NewKeyService(userRepo)
	authService := service.NewAuthService(userRepo, keyService)
	userService := service.NewUserService(userRepo)
	shareService := service.NewShareService(fileRepo, userRepo, keyService, hub)

	// 过期清扫任务：构造一次，显式启动，进程退出时优雅停止
	sweeper := service.NewSweeper(fileRepo, config.GlobalConfig.Sweeper.Interval)
	sweeper.Start()
	defer sweeper.Stop()

	authHandler := api.NewAuthHandler(authService)
	userHandler := api.NewUserHandler(userService)
	fileHandler := api.NewFileHandler(shareService)
	wsHandler := api.NewWSHandler(hub)

	// 创建Gin引擎
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.GinZapLogger())

	// 公开路由
	r.POST("/api/auth/register", authHandler.Register)
	r.POST("/api/auth/login", authHandler.Login)

	// 受保护的路由
	protected := r.Group("/", middleware.AuthMiddleware())
	{
		protected.GET("/api/users/me", userHandler.GetMe)
		protected.PUT("/api/users/name", userHandler.UpdateName)
		protected.PUT("/api/users/password", userHandler.UpdatePassword)
		protected.GET("/api/users/search-emails", userHandler.SearchEmails)

		protected.POST("/api/files/send", fileHandler.SendFile)
		protected.POST("/api/files/receive", fileHandler.ReceiveFile)
		protected.GET("/api/files/sent", fileHandler.SentFiles)
		protected.GET("/api/files/received", fileHandler.ReceivedFiles)

		protected.GET("/ws", wsHandler.HandleConnection)
	}

	srv := &http.Server{
		Addr:    ":" + config.GlobalConfig.Server.Port,
		Handler: r,
	}

	go func() {
		logger.L.Info("Server is running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.L.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.L.Error("Server forced to shutdown", zap.Error(err))
	}

	if kafkaHub, ok := hub.(*notify.KafkaHub); ok {
		kafkaHub.Close()
	}
}
