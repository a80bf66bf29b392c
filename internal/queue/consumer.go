package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// StartStayConsumer consumes both stay queues and appends each event as one
// line to logPath. It reconnects with exponential backoff until ctx is
// cancelled, then returns ctx.Err().
func StartStayConsumer(ctx context.Context, url, logPath string, log *zap.Logger) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("stay consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, logPath, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("stay consumer: loop ended, reconnecting", zap.Error(err))
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

func consumeLoop(ctx context.Context, conn *amqp.Connection, logPath string, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("stay consumer: set qos failed", zap.Error(err))
	}

	deliveries := make(chan amqp.Delivery)
	done := make(chan struct{})
	defer close(done)
	for _, name := range []string{QueueCheckedIn, QueueCheckedOut} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		go func() {
			for d := range msgs {
				select {
				case deliveries <- d:
				case <-done:
					return
				}
			}
		}()
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("connection closed")
		case d := <-deliveries:
			if err := handleMessage(logPath, d.Body); err != nil {
				log.Error("stay consumer: handle message failed", zap.Error(err))
				// Rejected without requeue so a bad message cannot spin.
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(logPath string, body []byte) error {
	var ev StayEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return appendEvent(logPath, ev)
}

// appendEvent writes ev as a single line to the file at path, creating the
// directory when needed.
func appendEvent(path string, ev StayEvent) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev StayEvent) string {
	line := fmt.Sprintf("[%s] %s | stay_id=%d | unit_id=%d", ev.OccurredAt, describe(ev.Kind), ev.StayID, ev.UnitID)
	if ev.UnitName != "" {
		line += fmt.Sprintf(" | unit=%q", ev.UnitName)
	}
	line += fmt.Sprintf(" | guest=%q | source=%s | type=%s | check_in=%s", ev.GuestName, ev.GuestSource, ev.StayType, ev.CheckInDate)
	if ev.CheckOutDate != "" {
		line += " | check_out=" + ev.CheckOutDate
	}
	if ev.EstimatedCheckout != "" {
		line += " | estimated_checkout=" + ev.EstimatedCheckout
	}
	return line + "\n"
}

func describe(kind string) string {
	switch kind {
	case QueueCheckedIn:
		return "Guest checked in"
	case QueueCheckedOut:
		return "Guest checked out"
	}
	return kind
}
