package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ogurasousui/employee-management/internal/core/employee"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// employeeEvent は Kafka に送信するイベントの JSON 表現です。
type employeeEvent struct {
	Type       string    `json:"type"`
	EmployeeID int64     `json:"employeeId"`
	ActorID    int64     `json:"actorId"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher は社員イベントを Kafka トピックに書き込みます。メッセージキーは社員 ID です。
type Publisher struct {
	w     messageWriter
	topic string
}

// batchTimeout はリクエスト経路で一件ずつ送信するため短くしています。
const batchTimeout = 10 * time.Millisecond

// NewPublisher は brokers に接続する Publisher を生成します。
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{w: newWriter(brokers, topic), topic: topic}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	l := slog.Default().With("component", "kafka", "topic", topic)

	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			l.Error(fmt.Sprintf(msg, args...))
		}),
	}
}

// Publish はイベントを送信します。
func (p *Publisher) Publish(ctx context.Context, event employee.Event) error {
	b, err := json.Marshal(employeeEvent{
		Type:       string(event.Type),
		EmployeeID: event.EmployeeID,
		ActorID:    event.ActorID,
		Role:       event.Role.String(),
		OccurredAt: event.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.EmployeeID, 10)),
		Value: b,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka: write %s: %w", event.Type, err)
	}
	return nil
}

// Close は未送信のメッセージを書き出して接続を閉じます。
func (p *Publisher) Close() error {
	return p.w.Close()
}
