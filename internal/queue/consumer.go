package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/auth-session-engine/internal/logging"
)

// StartAuditConsumer connects to RabbitMQ, declares the user.registered and
// user.logged_in queues (durable) and writes every event to the security
// audit log with the email masked.  It runs a reconnect loop and returns
// only once ctx is cancelled.  A message that cannot be decoded is logged
// and rejected so the consumer keeps running.
func StartAuditConsumer(ctx context.Context, url string, log logging.Logger) error {
    log = log.With("component", "audit-consumer")
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn(ctx, "failed to dial broker", "error", err, "retry_in", backoff.String())
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn(ctx, "consume loop ended; reconnecting", "error", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, log logging.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn(ctx, "set QoS failed", "error", err)
    }

    registered, err := declareAndConsume(ch, UserRegisteredQueue)
    if err != nil {
        return err
    }
    loggedIn, err := declareAndConsume(ch, UserLoggedInQueue)
    if err != nil {
        return err
    }

    for {
        var (
            d     amqp.Delivery
            ok    bool
            queue string
        )
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok = <-registered:
            queue = UserRegisteredQueue
        case d, ok = <-loggedIn:
            queue = UserLoggedInQueue
        }
        if !ok {
            return errors.New("deliveries channel closed")
        }
        if err := handleMessage(ctx, log, queue, d.Body); err != nil {
            log.Error(ctx, "handle message failed", "queue", queue, "error", err)
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
}

func declareAndConsume(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        return nil, fmt.Errorf("queue declare %s: %w", queue, err)
    }
    msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
    if err != nil {
        return nil, fmt.Errorf("queue consume %s: %w", queue, err)
    }
    return msgs, nil
}

func handleMessage(ctx context.Context, log logging.Logger, queue string, body []byte) error {
    switch queue {
    case UserRegisteredQueue:
        var ev UserRegisteredEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        log.Info(ctx, "security event: user registered",
            "user_id", ev.UserID, "email", MaskEmail(ev.Email), "registered_at", ev.RegisteredAt)
    case UserLoggedInQueue:
        var ev UserLoggedInEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        log.Info(ctx, "security event: user logged in",
            "user_id", ev.UserID, "email", MaskEmail(ev.Email), "ip", ev.IPAddress, "logged_in_at", ev.LoggedInAt)
    default:
        return fmt.Errorf("unexpected queue %q", queue)
    }
    return nil
}

// MaskEmail keeps at most the first two characters of the local part:
// alice@example.com becomes al***@example.com.
func MaskEmail(email string) string {
    local, domain, ok := strings.Cut(email, "@")
    if !ok {
        return "***"
    }
    if r := []rune(local); len(r) > 2 {
        local = string(r[:2])
    }
    return local + "***@" + domain
}
