package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/listing-platform/internal/logging"
)

// AuditQueue receives every event published on the exchange.
const AuditQueue = "listing-platform.audit"

// StartAuditConsumer binds AuditQueue to the exchange and appends each
// event to logPath as one line. It reconnects with exponential backoff
// and returns when ctx is cancelled.
func StartAuditConsumer(ctx context.Context, url, exchange, logPath string, logger *slog.Logger) error {
	logger = logging.Resolve(logger)
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := dial(url, DialTimeout)
		if err != nil {
			logger.Warn("audit consumer dial failed",
				"event", "audit_consumer_dial_failed",
				"module", "queue",
				"layer", "worker",
				"retry_in", backoff.String(),
				"error", err.Error(),
			)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, exchange, logPath, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("audit consumer loop ended, reconnecting",
			"event", "audit_consumer_reconnect",
			"module", "queue",
			"layer", "worker",
			"error", fmt.Sprint(err),
		)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, exchange, logPath string, logger *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("audit consumer set QoS failed", "event", "audit_consumer_qos_failed", "error", err.Error())
	}
	if err := declareExchange(ch, exchange); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(AuditQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(AuditQueue, "#", exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.Consume(AuditQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleAuditMessage(d.Body, logPath); err != nil {
				logger.Error("audit consumer handle message failed",
					"event", "audit_consumer_message_failed",
					"module", "queue",
					"layer", "worker",
					"error", err.Error(),
				)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleAuditMessage decodes an event and appends its audit line to path.
func HandleAuditMessage(body []byte, path string) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatAuditLine(ev)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// FormatAuditLine renders ev as a single human readable line.
func FormatAuditLine(ev Event) string {
	line := fmt.Sprintf("[%s] %s", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type)
	if ev.ListingID != "" {
		line += fmt.Sprintf(" | listing_id=%s", ev.ListingID)
	}
	if ev.ReviewID != "" {
		line += fmt.Sprintf(" | review_id=%s", ev.ReviewID)
	}
	if ev.AccountID != 0 {
		line += fmt.Sprintf(" | account_id=%d", ev.AccountID)
	}
	if ev.Actor != "" {
		line += fmt.Sprintf(" | actor=%q", ev.Actor)
	}
	return line + "\n"
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
