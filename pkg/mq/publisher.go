// Package mq 排班事件的 RabbitMQ 发布
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Jaaz7/kgag-scheduler/config"
)

// EventScheduleGenerated 排班生成完成事件类型
const EventScheduleGenerated = "schedule.generated"

// ScheduleGenerated 排班生成完成事件
type ScheduleGenerated struct {
	Type       string    `json:"type"`
	ScheduleID string    `json:"schedule_id"`
	ShopID     string    `json:"shop_id"`
	Month      int       `json:"month"`
	Year       int       `json:"year"`
	Filled     int       `json:"filled"`
	Unfilled   int       `json:"unfilled"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher 持有单个连接与通道，发布操作串行化
type Publisher struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewPublisher 连接 RabbitMQ 并声明持久化队列
func NewPublisher(cfg *config.MQConfig, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("无法连接到 rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("无法建立通道: %w", err)
	}

	if _, err := ch.QueueDeclare(
		cfg.Queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("无法声明队列 %s: %w", cfg.Queue, err)
	}

	logger.Info("RabbitMQ 连接成功", zap.String("queue", cfg.Queue))
	return &Publisher{conn: conn, ch: ch, queue: cfg.Queue, logger: logger}, nil
}

// PublishScheduleGenerated 发布排班生成事件
func (p *Publisher) PublishScheduleGenerated(ctx context.Context, ev ScheduleGenerated) error {
	ev.Type = EventScheduleGenerated
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(
		ctx,
		"",
		p.queue,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         EventScheduleGenerated,
			Timestamp:    ev.OccurredAt,
			Body:         body,
		},
	)
}

// Close 关闭通道与连接
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		p.logger.Warn("关闭 RabbitMQ 通道失败", zap.Error(err))
	}
	return p.conn.Close()
}
