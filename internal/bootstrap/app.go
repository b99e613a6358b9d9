package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"docsort/internal/cache"
	"docsort/internal/config"
	"docsort/internal/label"
	rabbitmqClient "docsort/internal/platform/rabbitmq"
	redisClient "docsort/internal/platform/redis"
	"docsort/internal/vision"
)

type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Classifier   vision.Classifier
	ChannelOrder vision.ChannelOrder

	// Optional backends; nil when disabled in config.
	Redis  *redis.Client
	Stats  *cache.PredictionStats
	MQConn *amqp.Connection
	Events *rabbitmqClient.EventPublisher

	StartedAt time.Time
}

// New loads the model before anything else so a bad artifact stops the
// process before it binds a port.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	order, err := vision.ParseChannelOrder(cfg.Vision.ChannelOrder)
	if err != nil {
		return nil, err
	}

	classifier, err := vision.NewONNXClassifier(cfg.Vision.ModelPath, cfg.Vision.ONNXSharedLibPath, label.Count)
	if err != nil {
		return nil, fmt.Errorf("load model failed: %w", err)
	}
	logger.Info("model loaded",
		zap.String("path", cfg.Vision.ModelPath),
		zap.String("channel_order", order.String()),
	)

	app := &App{
		Config:       cfg,
		Logger:       logger,
		Classifier:   classifier,
		ChannelOrder: order,
		StartedAt:    time.Now(),
	}

	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.Redis = redisCli
		app.Stats = cache.NewPredictionStats(redisCli, "")
		logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	if cfg.RabbitMQ.Enabled {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.FilingQueue)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.MQConn = mqConn
		app.Events = rabbitmqClient.NewEventPublisher(mqConn, cfg.RabbitMQ.FilingQueue, cfg.App.SecretKey)
		logger.Info("rabbitmq connected", zap.String("queue", cfg.RabbitMQ.FilingQueue))
	}

	return app, nil
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.MQConn != nil {
		errs = append(errs, a.MQConn.Close())
	}
	if a.Classifier != nil {
		errs = append(errs, a.Classifier.Close())
	}
	return errors.Join(errs...)
}
