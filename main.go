package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"ride-chat/internal/db"
	"ride-chat/internal/handlers"
	"ride-chat/internal/middleware"
	"ride-chat/internal/observability"
	"ride-chat/internal/rabbitmq"
	"ride-chat/internal/repositories"
	"ride-chat/internal/telemetry"
	"ride-chat/internal/ws"
)

func main() {
	ctx := context.Background()

	shutdownTracing := telemetry.InitTracing(ctx, "ride-chat")
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	publisher := rabbitmq.NewPublisher(getEnv("AMQP_URL", ""), getEnv("AMQP_EXCHANGE", "ride_events"))
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	amqpObs, err := observability.NewAMQPPublisher(getEnv("AMQP_URL", ""), getEnv("AMQP_EXCHANGE", "ride_events"))
	if err != nil {
		log.Printf("ws event publishing disabled: %v", err)
	} else {
		observability.SetPublisher(amqpObs)
		defer amqpObs.Close()
	}

	audit := telemetry.NewAuditEmitter(publisher, "audit.chat", "ride-chat", getEnv("ENVIRONMENT", "development"))

	messageRepo := repositories.NewMessageRepo(database)
	requestRepo := repositories.NewRequestRepo(database)

	hub := ws.NewHub()

	chatHandler := handlers.NewChatHandler(messageRepo, requestRepo, hub, audit)
	chatSocket := ws.NewChatSocketHandler(hub, requestRepo)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("ride-chat"))
	router.Use(observability.HTTPMetricsMiddleware())

	identity := middleware.Identity()

	router.POST("/chat", identity, chatHandler.PostChat)
	router.GET("/chat/messages/:conversation_id", identity, chatHandler.ListMessages)
	router.GET("/chat/client_request/:user_id/:role", identity, chatHandler.ActiveClientRequest)

	router.GET("/ws/chat/:conversation_id", chatSocket.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
