package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"woordjes/internal/log"
)

const maxBackoff = 30 * time.Second

// ErrChannelClosed is returned while the client has no open channel, for
// example between a lost connection and a successful reconnect.
var ErrChannelClosed = errors.New("amqp channel not open")

type Client struct {
	mu           sync.Mutex
	url          string
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *log.Logger
}

func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn, c.channel = conn, channel
	c.mu.Unlock()

	if err := c.setup(); err != nil {
		c.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	return nil
}

// setup declares a durable direct exchange and queue and binds the queue
// once per message type.
func (c *Client) setup() error {
	const durable, autoDelete, internal, exclusive, noWait = true, false, false, false, false

	if err := c.channel.ExchangeDeclare(c.exchangeName, amqp091.ExchangeDirect, durable, autoDelete, internal, noWait, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queueName, durable, autoDelete, exclusive, noWait, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	for _, key := range []string{TypeSessionCompleted, TypeMedalAwarded} {
		if err := c.channel.QueueBind(c.queueName, key, c.exchangeName, noWait, nil); err != nil {
			return fmt.Errorf("bind queue to %s: %w", key, err)
		}
	}
	return nil
}

func (c *Client) publish(ctx context.Context, msgType string, body []byte) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		return ErrChannelClosed
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// The routing key is the message type.
	err := channel.PublishWithContext(ctx, c.exchangeName, msgType, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Type:         msgType,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", msgType, err)
	}
	return nil
}

// PublishSessionCompleted announces a saved game session.
func (c *Client) PublishSessionCompleted(ctx context.Context, sessionID int64, userID string, score int) error {
	body, err := NewSessionCompletedMessage(sessionID, userID, score).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeSessionCompleted, body); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Published session completed message",
		log.FieldSessionID, sessionID,
		log.FieldUserID, userID,
		"exchange", c.exchangeName)
	return nil
}

// PublishMedalAwarded announces a stored podium.
func (c *Client) PublishMedalAwarded(ctx context.Context, kind string, periodStart time.Time, count int) error {
	body, err := NewMedalAwardedMessage(kind, periodStart, count).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeMedalAwarded, body); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Published medal awarded message",
		log.FieldMedalKind, kind,
		log.FieldPeriodStart, periodStart.Format("2006-01-02"),
		"count", count)
	return nil
}

// Handlers receive decoded messages. A nil handler acknowledges and drops
// messages of its type.
type Handlers struct {
	SessionCompleted func(context.Context, *SessionCompletedMessage) error
	MedalAwarded     func(context.Context, *MedalAwardedMessage) error
}

// decision says what to do with a delivery after dispatch.
type decision int

const (
	ack decision = iota
	reject
	requeue
)

// dispatch decodes body by type and runs the matching handler. Malformed
// and unknown messages are rejected, and so are handler failures: the
// scheduled sweeps pick up whatever a dropped message left undone. Only a
// failure caused by shutdown goes back to the queue.
func (c *Client) dispatch(ctx context.Context, msgType string, body []byte, h Handlers) decision {
	var err error
	switch msgType {
	case TypeSessionCompleted:
		msg, decodeErr := SessionCompletedMessageFromJSON(body)
		if decodeErr != nil {
			c.logger.ErrorContext(ctx, "Failed to unmarshal message", log.FieldError, decodeErr, "type", msgType)
			return reject
		}
		if h.SessionCompleted != nil {
			err = h.SessionCompleted(ctx, msg)
		}
	case TypeMedalAwarded:
		msg, decodeErr := MedalAwardedMessageFromJSON(body)
		if decodeErr != nil {
			c.logger.ErrorContext(ctx, "Failed to unmarshal message", log.FieldError, decodeErr, "type", msgType)
			return reject
		}
		if h.MedalAwarded != nil {
			err = h.MedalAwarded(ctx, msg)
		}
	default:
		c.logger.WarnContext(ctx, "Dropping message of unknown type", "type", msgType)
		return reject
	}

	if err != nil {
		if ctx.Err() != nil {
			c.logger.WarnContext(ctx, "Requeueing message interrupted by shutdown", log.FieldError, err, "type", msgType)
			return requeue
		}
		c.logger.ErrorContext(ctx, "Failed to handle message", log.FieldError, err, "type", msgType)
		return reject
	}
	return ack
}

// Consume processes deliveries until ctx ends or the channel closes.
func (c *Client) Consume(ctx context.Context, h Handlers) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		return ErrChannelClosed
	}

	// Manual acks: dispatch decides per delivery.
	msgs, err := channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msgType := delivery.Type
			if msgType == "" {
				msgType = delivery.RoutingKey
			}

			switch c.dispatch(ctx, msgType, delivery.Body, h) {
			case ack:
				delivery.Ack(false)
			case reject:
				delivery.Nack(false, false)
			case requeue:
				delivery.Nack(false, true)
			}
		}
	}
}

// ConsumeWithReconnect keeps consuming across broker restarts, backing off
// exponentially between reconnect attempts.
func (c *Client) ConsumeWithReconnect(ctx context.Context, h Handlers) error {
	attempt := 0
	for {
		err := c.Consume(ctx, h)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		c.logger.WarnContext(ctx, "AMQP connection lost, reconnecting", log.FieldError, err, "retry_in", wait.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		c.Close()
		if err := c.connect(); err != nil {
			c.logger.ErrorContext(ctx, "AMQP reconnect failed", log.FieldError, err)
			attempt++
			continue
		}
		attempt = 0
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) || errors.Is(err, ErrChannelClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "channel closed", "eof", "broken pipe", "dial amqp"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		if err != nil && !errors.Is(err, amqp091.ErrClosed) {
			return err
		}
	}
	return nil
}
