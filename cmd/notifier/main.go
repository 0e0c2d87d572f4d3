package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	confluentKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"cineverse/internal/config"
	"cineverse/internal/cvtypes"
	"cineverse/internal/handlers/notifier"
	appKafka "cineverse/internal/kafka"
	"cineverse/internal/websocket"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	log.Println("通知服务器配置加载成功。")

	// 2. 初始化 WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()
	log.Println("WebSocket Hub 已启动。")

	// 3. 初始化 WebSocket Handler
	wsHandler := notifier.NewWebSocketHandler(hub, cfg)

	// 4. 初始化 Kafka 消费者 (通知事件)
	notificationConsumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	if err != nil {
		log.Fatalf("无法创建通知 Kafka 消费者: %v", err)
	}
	defer notificationConsumer.Close()

	// 为 Kafka 消费者创建可以取消的上下文
	consumerCtx, cancelConsumers := context.WithCancel(context.Background())
	defer cancelConsumers()

	go func() {
		log.Printf("Kafka 通知消费者 goroutine 启动，监听 topic: %s", cfg.Kafka.NotificationsTopic)
		topicsToConsume := []string{cfg.Kafka.NotificationsTopic}
		if err := notificationConsumer.Consume(consumerCtx, topicsToConsume, cfg.Kafka.ConsumerGroup,
			func(ctx context.Context, kafkaMsg *confluentKafka.Message) error {
				var event cvtypes.NotificationEvent
				if err := json.Unmarshal(kafkaMsg.Value, &event); err != nil {
					log.Printf("错误: 无法反序列化通知事件: %v, 原始值: %s", err, string(kafkaMsg.Value))
					return nil // 坏消息不应卡住消费者
				}
				hub.DeliverNotification(&event)
				return nil
			}); err != nil {
			log.Printf("Kafka 通知消费者错误: %v", err)
		}
		log.Println("Kafka 通知消费者 goroutine 已停止。")
	}()

	// 5. 配置 HTTP 服务器路由
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Server.WebSocketPath, wsHandler.ServeWS)

	// 6. 启动 HTTP 服务器
	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{Addr: serverAddr, Handler: mux}

	go func() {
		log.Printf("通知 HTTP 服务器启动于 %s, WebSocket 路径: %s", serverAddr, cfg.Server.WebSocketPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("通知服务器启动失败: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("通知服务器准备关闭...")

	cancelConsumers() // 通知 Kafka 消费者停止
	log.Println("正在等待 Kafka 消费者停止...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("通知服务器关闭失败: %v", err)
	}
	log.Println("通知服务器已优雅关闭。")
}
