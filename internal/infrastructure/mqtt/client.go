package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/nerrad567/entryguard/internal/infrastructure/config"
)

// Client is the controller's broker session.
//
// It owns the deployment's topic namespace, refuses topics outside it, keeps
// a retained online/offline record on Topics.Status and re-subscribes after
// every reconnect.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	site   string
	topics Topics
	logger Logger

	mu         sync.RWMutex
	connected  bool
	subs       map[string]subscription
	reconnects int
}

// Logger defines the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler receives one inbound message.
//
// Handlers run on paho's delivery goroutine in arrival order and must not
// block. A returned error is logged; the message is acknowledged regardless.
type MessageHandler func(topic string, payload []byte) error

// Connect opens the broker session for one site.
//
// Failed attempts are retried with backoff, paced by cfg.Reconnect and
// limited by Reconnect.MaxAttempts (zero keeps trying until ctx ends). The
// will is registered before the first attempt.
//
// Parameters:
//   - ctx: Bounds the startup retries
//   - cfg: MQTT configuration from config.yaml
//   - site: Site ID carried in status records
//   - logger: May be nil
//
// Returns:
//   - *Client: Connected client
//   - error: ErrConnectionFailed wrapping the last attempt's error
func Connect(ctx context.Context, cfg config.MQTTConfig, site string, logger Logger) (*Client, error) {
	c := newClient(cfg, site, logger)

	will := newStatus(StatusOffline, ReasonLost, site, cfg.Broker.ClientID, time.Now())
	opts := buildClientOptions(cfg, will, c.topics.Status())
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleLost(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) { c.handleReconnecting() })
	c.client = pahomqtt.NewClient(opts)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return c.dial()
	}, connectBackoff(ctx, cfg.Reconnect), func(err error, wait time.Duration) {
		c.logger.Warn("broker unreachable, retrying",
			"broker", brokerURL(cfg.Broker),
			"attempt", attempt,
			"retry_in", wait,
			"error", err)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempt(s): %w", ErrConnectionFailed, attempt, err)
	}

	// The connect handler runs asynchronously; callers may publish at once.
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	return c, nil
}

func newClient(cfg config.MQTTConfig, site string, logger Logger) *Client {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Client{
		cfg:    cfg,
		site:   site,
		topics: NewTopics(cfg.TopicPrefix),
		logger: logger,
		subs:   make(map[string]subscription),
	}
}

// refusals that retrying cannot fix.
var permanentRefusals = []error{
	packets.ErrorRefusedBadUsernameOrPassword,
	packets.ErrorRefusedNotAuthorised,
	packets.ErrorRefusedIDRejected,
	packets.ErrorRefusedBadProtocolVersion,
}

func (c *Client) dial() error {
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("%w: connect after %v", ErrTimeout, connectTimeout)
	}
	err := token.Error()
	for _, refusal := range permanentRefusals {
		if errors.Is(err, refusal) {
			return backoff.Permanent(err)
		}
	}
	return err
}

func (c *Client) log() Logger {
	if c.logger == nil {
		return noopLogger{}
	}
	return c.logger
}

// handleConnect runs on the first connection and after every reconnect.
func (c *Client) handleConnect() {
	c.mu.Lock()
	c.connected = true
	attempts := c.reconnects
	c.reconnects = 0
	subs := make(map[string]subscription, len(c.subs))
	for topic, sub := range c.subs {
		subs[topic] = sub
	}
	c.mu.Unlock()

	if attempts > 0 {
		c.log().Info("broker reconnected", "attempts", attempts)
	}

	for topic, sub := range subs {
		token := c.client.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
		if err := waitToken(token, ErrSubscribeFailed); err != nil {
			c.log().Warn("restoring subscription failed", "topic", topic, "error", err)
		}
	}
	if len(subs) > 0 {
		c.log().Debug("subscriptions restored", "count", len(subs))
	}

	online := newStatus(StatusOnline, "", c.site, c.cfg.Broker.ClientID, time.Now())
	c.client.Publish(c.topics.Status(), 1, true, online.payload())
}

func (c *Client) handleLost(err error) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	c.log().Warn("broker connection lost", "error", err)
}

func (c *Client) handleReconnecting() {
	c.mu.Lock()
	c.reconnects++
	n := c.reconnects
	c.mu.Unlock()
	c.log().Debug("reconnecting to broker", "attempt", n)
}

// Close publishes the retained offline record and disconnects. The broker
// does not fire the will after a clean disconnect.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		offline := newStatus(StatusOffline, ReasonShutdown, c.site, c.cfg.Broker.ClientID, time.Now())
		token := c.client.Publish(c.topics.Status(), 1, true, offline.payload())
		if err := waitToken(token, ErrPublishFailed); err != nil {
			c.log().Warn("offline status not published", "error", err)
		}
	}

	c.client.Disconnect(disconnectQuiesce)

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return nil
}

// HealthCheck reports ErrNotConnected while the session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known session state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// Topics returns the topic builder for this client's namespace.
func (c *Client) Topics() Topics {
	return c.topics
}

// QoS returns the configured QoS for controller traffic.
func (c *Client) QoS() byte {
	return byte(c.cfg.QoS)
}

// wrapHandler adapts a MessageHandler to paho, recovering panics so one bad
// payload cannot stop delivery.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log().Error("message handler panicked", "topic", msg.Topic(), "panic", r)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.log().Warn("message rejected", "topic", msg.Topic(), "error", err)
		}
	}
}

// waitToken waits for an acknowledgement, wrapping failures in failed.
func waitToken(token pahomqtt.Token, failed error) error {
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("%w: %w after %v", failed, ErrTimeout, operationTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", failed, err)
	}
	return nil
}
