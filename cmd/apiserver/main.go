package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cineverse/internal/config"
	"cineverse/internal/cvtypes"
	"cineverse/internal/handlers/apiserver"
	appKafka "cineverse/internal/kafka"
	"cineverse/internal/middleware"
	appRedis "cineverse/internal/redis"
	"cineverse/internal/services"
	"cineverse/internal/storage"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	redisDriver "github.com/redis/go-redis/v9"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	log.Println("API 服务器配置加载成功。")

	// 2. 初始化数据库连接
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("无法初始化数据库: %v", err)
	}
	log.Println("API 服务器数据库连接成功。")

	// (可选) 表结构迁移与分类种子数据
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Printf("警告：API 服务器数据库表迁移可能失败: %v", err)
	} else {
		log.Println("API 服务器数据库表迁移成功 (如果执行)。")
	}
	if err := storage.SeedCategories(db); err != nil {
		log.Printf("警告：初始化电影分类失败: %v", err)
	}

	// 3. 初始化 Redis Client
	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err = redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("无法连接到 Redis: %v", err)
	}
	log.Println("成功连接到 Redis")

	// 4. 初始化 TokenBlacklist 服务
	tokenBlacklistService := appRedis.NewRedisTokenBlacklist(redisClient)

	// 5. 初始化 Repositories
	userRepo := storage.NewGormUserRepository(db)
	friendshipRepo := storage.NewGormFriendshipRepository(db)
	filmRepo := storage.NewGormFilmRepository(db)
	reviewRepo := storage.NewGormReviewRepository(db)
	commentRepo := storage.NewGormCommentRepository(db)

	// 6. 初始化 Kafka Producer (通知事件)
	kfkProducer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
	if err != nil {
		// 通知推送是尽力而为的，Kafka 不可用时 API 服务器照常工作
		log.Printf("警告：无法创建 Kafka 生产者，通知推送已禁用: %v", err)
		kfkProducer = nil
	} else {
		defer kfkProducer.Close()
		log.Println("Kafka 生产者初始化成功 (API Server)。")
	}

	// 7. 初始化 Services
	authService := services.NewAuthService(userRepo, cfg)
	userService := services.NewUserService(userRepo)
	friendshipService := services.NewFriendshipService(userRepo, friendshipRepo, kfkProducer, cfg.Kafka)
	reviewService := services.NewReviewService(reviewRepo, filmRepo)
	commentService := services.NewCommentService(commentRepo, reviewRepo, userRepo, kfkProducer, cfg.Kafka)

	// 7.1 初始化存储服务 (头像)
	var storageService cvtypes.StorageService
	storageBaseURL := "/uploads"
	if cfg.Storage.Type == "local" {
		storageService, err = storage.NewLocalStorageService(cfg.Storage, storageBaseURL)
		if err != nil {
			log.Fatalf("无法初始化本地存储服务: %v", err)
		}
		log.Println("本地存储服务初始化成功。")
	} else {
		log.Fatalf("不支持的存储类型: %s", cfg.Storage.Type)
	}

	// 8. 初始化 Handlers
	authHandler := apiserver.NewAuthHandler(authService, tokenBlacklistService)
	userHandler := apiserver.NewUserHandler(userService, authService, friendshipService, reviewService, cfg.Auth.JWTSecretKey, tokenBlacklistService)
	friendshipHandler := apiserver.NewFriendshipHandler(friendshipService)
	reviewHandler := apiserver.NewReviewHandler(reviewService)
	commentHandler := apiserver.NewCommentHandler(commentService)
	uploadHandler := apiserver.NewUploadHandler(storageService, userService, cfg.Storage)

	// 9. 设置 HTTP 路由
	r := mux.NewRouter()

	// 9.1 认证路由
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)

	// 创建 AuthMiddleware 实例
	authMW := middleware.AuthMiddleware(cfg.Auth.JWTSecretKey, tokenBlacklistService)

	// 9.2 API 子路由 (需要认证)
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(authMW)

	// 登出需要认证来获取 JTI
	apiRouter.HandleFunc("/auth/logout", authHandler.LogoutHandler).Methods(http.MethodPost)

	// 用户路由
	apiRouter.HandleFunc("/users/me", userHandler.GetMyProfile).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/me", userHandler.UpdateMyProfile).Methods(http.MethodPut)
	apiRouter.HandleFunc("/users/me/credentials", userHandler.UpdateMyCredentials).Methods(http.MethodPut)
	apiRouter.HandleFunc("/users/me/avatar", uploadHandler.UploadAvatarHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/users/search", userHandler.SearchUsers).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/{userID:[0-9]+}/mutual-friends", friendshipHandler.ListMutualFriends).Methods(http.MethodGet)

	// 好友路由
	apiRouter.HandleFunc("/friends", friendshipHandler.ListFriends).Methods(http.MethodGet)
	friendRequestRouter := apiRouter.PathPrefix("/friend-requests").Subrouter()
	friendRequestRouter.HandleFunc("", friendshipHandler.SendFriendRequest).Methods(http.MethodPost)
	friendRequestRouter.HandleFunc("/pending", friendshipHandler.ListPendingRequests).Methods(http.MethodGet)
	friendRequestRouter.HandleFunc("/{requestID:[0-9]+}/respond", friendshipHandler.RespondToFriendRequest).Methods(http.MethodPost)

	// 影评与评论路由
	apiRouter.HandleFunc("/reviews", reviewHandler.CreateReview).Methods(http.MethodPost)
	apiRouter.HandleFunc("/reviews/{reviewID:[0-9]+}/comments", commentHandler.CreateComment).Methods(http.MethodPost)

	// 9.3 公开路由 (不需要认证)
	// 用户公开主页：匿名可见，带 Token 时按访问者身份解锁内容
	r.HandleFunc("/users/{userID:[0-9]+}", userHandler.GetUserProfile).Methods(http.MethodGet)
	// 影评流、单条影评和评论对所有人可见
	r.HandleFunc("/feed", reviewHandler.Feed).Methods(http.MethodGet)
	r.HandleFunc("/categories", reviewHandler.ListCategories).Methods(http.MethodGet)
	r.HandleFunc("/reviews/{reviewID:[0-9]+}", reviewHandler.GetReview).Methods(http.MethodGet)
	r.HandleFunc("/reviews/{reviewID:[0-9]+}/comments", commentHandler.ListComments).Methods(http.MethodGet)

	// 9.4 静态文件服务路由 - 用于访问上传的头像
	if cfg.Storage.Type == "local" {
		staticPath := strings.TrimSuffix(storageBaseURL, "/") + "/"
		localDir := http.Dir(cfg.Storage.LocalPath)
		r.PathPrefix(staticPath).Handler(http.StripPrefix(staticPath, http.FileServer(localDir)))
		log.Printf("提供静态文件服务于 %s -> %s", staticPath, cfg.Storage.LocalPath)
	}

	// 10. 启动 HTTP 服务器并实现优雅关闭
	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)

	// 定义 CORS 选项，从配置中读取
	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}
	corsHandler := handlers.CORS(corsOptions...)(r)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      corsHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Second * 60,
	}

	go func() {
		log.Printf("API 服务器启动于 %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API 服务器启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("收到关闭信号，正在关闭 API 服务器...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("API 服务器强制关闭: %v", err)
	}

	log.Println("API 服务器已成功关闭")
}
