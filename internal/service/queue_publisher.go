package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/auth-session-engine/internal/logging"
	q "github.com/iliyamo/auth-session-engine/internal/queue"
)

// Notifier receives lifecycle events.  Delivery is best effort: the engine
// logs a failed notification and carries on.
type Notifier interface {
	UserRegistered(ctx context.Context, ev q.UserRegisteredEvent) error
	UserLoggedIn(ctx context.Context, ev q.UserLoggedInEvent) error
}

// LogNotifier writes events to the structured log.  It is used when no
// broker is configured.
type LogNotifier struct{ Log logging.Logger }

func (n LogNotifier) UserRegistered(ctx context.Context, ev q.UserRegisteredEvent) error {
	n.Log.Info(ctx, "user registered", "user_id", ev.UserID, "email", q.MaskEmail(ev.Email))
	return nil
}

func (n LogNotifier) UserLoggedIn(ctx context.Context, ev q.UserLoggedInEvent) error {
	n.Log.Info(ctx, "user logged in", "user_id", ev.UserID, "email", q.MaskEmail(ev.Email), "ip", ev.IPAddress)
	return nil
}

// AMQPPublisher publishes events to durable RabbitMQ queues, one queue per
// event kind.  Each publish opens its own connection so a broker outage
// never leaves a broken channel behind.
type AMQPPublisher struct {
	URL         string
	DialTimeout time.Duration
}

// NewNotifier returns an AMQP publisher when url is set and a log notifier
// otherwise.
func NewNotifier(url string, log logging.Logger) Notifier {
	if url == "" {
		return LogNotifier{Log: log}
	}
	return &AMQPPublisher{URL: url, DialTimeout: 2 * time.Second}
}

func (p *AMQPPublisher) UserRegistered(ctx context.Context, ev q.UserRegisteredEvent) error {
	return p.publish(ctx, q.UserRegisteredQueue, ev)
}

func (p *AMQPPublisher) UserLoggedIn(ctx context.Context, ev q.UserLoggedInEvent) error {
	return p.publish(ctx, q.UserLoggedInQueue, ev)
}

func (p *AMQPPublisher) publish(ctx context.Context, queue string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}

	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		return fmt.Errorf("rabbitmq: queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}
