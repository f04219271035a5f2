package mqtt

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/entryguard/internal/infrastructure/config"
)

// Timing of broker operations.
const (
	// connectTimeout bounds one connection attempt.
	connectTimeout = 10 * time.Second

	// operationTimeout bounds a publish, subscribe or unsubscribe acknowledgement.
	operationTimeout = 5 * time.Second

	// disconnectQuiesce is how long Close lets in-flight work finish, in milliseconds.
	disconnectQuiesce = 500

	// keepAlive lets the broker notice a dead controller and fire the will.
	keepAlive = 30 * time.Second

	defaultInitialDelay = time.Second
	defaultMaxDelay     = time.Minute
)

const (
	maxQoS = 2

	// maxPayloadSize caps outbound payloads. Notifications, telemetry lines
	// and field frames are all far smaller.
	maxPayloadSize = 64 << 10
)

// brokerURL renders tcp://host:port, or ssl:// when TLS is on.
func brokerURL(b config.MQTTBrokerConfig) string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return scheme + "://" + net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

// buildClientOptions maps the broker config onto paho options.
//
// Startup connection retries are done by Connect with backoff, so paho's own
// connect retry stays off and a refused attempt fails fast. Once a session
// has existed paho reconnects on its own, waiting at most Reconnect.MaxDelay.
//
// Messages are delivered to handlers in arrival order; keypad presses depend
// on that.
func buildClientOptions(cfg config.MQTTConfig, will Status, willTopic string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetConnectRetry(false).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(seconds(cfg.Reconnect.MaxDelay, defaultMaxDelay)).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		SetBinaryWill(willTopic, will.payload(), 1, true)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: cfg.Broker.Host,
		})
	}

	return opts
}

// connectBackoff paces startup connection attempts between
// Reconnect.InitialDelay and Reconnect.MaxDelay. MaxAttempts of zero retries
// until the context ends.
func connectBackoff(ctx context.Context, r config.MQTTReconnectConfig) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = seconds(r.InitialDelay, defaultInitialDelay)
	bo.MaxInterval = seconds(r.MaxDelay, defaultMaxDelay)
	bo.MaxElapsedTime = 0

	var policy backoff.BackOff = bo
	if r.MaxAttempts > 0 {
		policy = backoff.WithMaxRetries(bo, uint64(r.MaxAttempts-1))
	}
	return backoff.WithContext(policy, ctx)
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
