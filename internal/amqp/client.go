package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const publishRetries = 3

type Client struct {
	conn           *amqp091.Connection
	channel        *amqp091.Channel
	exchangeName   string
	recomputeQueue string
	reportQueue    string
}

// NewClient connects to the broker and declares a direct exchange with one
// durable queue per message kind, each bound with its own name as routing key.
func NewClient(url, exchangeName, recomputeQueue, reportQueue string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:           conn,
		channel:        channel,
		exchangeName:   exchangeName,
		recomputeQueue: recomputeQueue,
		reportQueue:    reportQueue,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, queue := range []string{c.recomputeQueue, c.reportQueue} {
		_, err = c.channel.QueueDeclare(
			queue, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}

		// Routing key matches the queue name on a direct exchange.
		err = c.channel.QueueBind(queue, queue, c.exchangeName, false, nil)
		if err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}

	return nil
}

// PublishLoanRecompute publishes a loan recompute message.
func (c *Client) PublishLoanRecompute(ctx context.Context, loanID uuid.UUID, version int64) error {
	msg := NewLoanRecomputeMessage(loanID, version)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, c.recomputeQueue, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published loan recompute message",
		"loan_id", loanID,
		"version", version,
		"exchange", c.exchangeName,
		"queue", c.recomputeQueue)
	return nil
}

// PublishReportRequest publishes an on-demand period report request.
func (c *Client) PublishReportRequest(ctx context.Context, start, end time.Time) error {
	msg := NewReportRequestMessage(start, end)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, c.reportQueue, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published report request message",
		"start", start,
		"end", end,
		"exchange", c.exchangeName,
		"queue", c.reportQueue)
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	var lastErr error
	for attempt := 0; attempt < publishRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}

		publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.channel.PublishWithContext(
			publishCtx,
			c.exchangeName, // exchange
			routingKey,     // routing key
			false,          // mandatory
			false,          // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp091.Persistent,
				Timestamp:    time.Now(),
				Body:         body,
			},
		)
		cancel()
		if err == nil {
			return nil
		}

		lastErr = err
		if !isConnectionError(err) {
			break
		}
		slog.WarnContext(ctx, "Publish failed, retrying",
			"attempt", attempt+1,
			"error", err)
	}
	return fmt.Errorf("publish message: %w", lastErr)
}

// ConsumeLoanRecompute delivers loan recompute messages to the handler until
// the context is cancelled. Handler errors requeue the message, malformed
// messages are dropped.
func (c *Client) ConsumeLoanRecompute(ctx context.Context, handler func(*LoanRecomputeMessage) error) error {
	return c.consume(ctx, c.recomputeQueue, func(body []byte) error {
		msg, err := LoanRecomputeMessageFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		return handler(msg)
	})
}

// ConsumeReportRequests delivers report request messages to the handler until
// the context is cancelled.
func (c *Client) ConsumeReportRequests(ctx context.Context, handler func(*ReportRequestMessage) error) error {
	return c.consume(ctx, c.reportQueue, func(body []byte) error {
		msg, err := ReportRequestMessageFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		return handler(msg)
	})
}

var errMalformed = fmt.Errorf("malformed message")

func (c *Client) consume(ctx context.Context, queue string, handle func([]byte) error) error {
	msgs, err := c.channel.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack (we want manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming messages", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			if err := handle(delivery.Body); err != nil {
				requeue := !strings.Contains(err.Error(), errMalformed.Error())
				slog.ErrorContext(ctx, "Failed to handle message",
					"queue", queue,
					"requeue", requeue,
					"error", err)
				delivery.Nack(false, requeue)
				continue
			}

			delivery.Ack(false)
		}
	}
}

// exponentialBackoff doubles the delay per attempt, capped at 30 seconds.
func exponentialBackoff(attempt int) time.Duration {
	backoff := time.Second << uint(attempt)
	if backoff > 30*time.Second || backoff <= 0 {
		return 30 * time.Second
	}
	return backoff
}

// isConnectionError reports whether an error looks like a broken broker
// connection worth retrying, as opposed to a permanent failure.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, fragment := range []string{
		"connection refused",
		"connection closed",
		"unexpected EOF",
		"broken pipe",
		"use of closed network connection",
		"channel/connection is not open",
	} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
