// Package mqtt provides MQTT client connectivity for Entry Guard Core.
//
// The Client keeps one broker session per door unit. It registers a
// retained will on <prefix>/status, retries the startup connection with
// backoff, restores subscriptions after paho's automatic reconnect and
// refuses any topic outside the deployment prefix.
//
// # Architecture
//
// The broker carries three kinds of traffic for one entry point, all
// under a configurable prefix (see Topics):
//
//	observer  ← notifications, sensors, status
//	observer  → lights, display
//	field node ↔ field/sensors, field/keypad, field/lock, field/buzzer, field/led/N, field/display
//
// The broker is also one of the two notification channels, so a publish
// failure here is reported to the caller and never retried by this package.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - The door credential never travels over the broker; only keypresses do
//   - Anonymous access is only for local development
//
// # Status record
//
// <prefix>/status always holds a retained JSON Status: "online" while the
// session is up, "offline" with reason "graceful_shutdown" after Close, or
// the will ("offline", "unexpected_disconnect") when the broker loses the
// controller.
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT, cfg.Site.ID, log)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().Lights(), 1,
//	    func(topic string, payload []byte) error {
//	        queue.Submit(string(payload))
//	        return nil
//	    })
//
//	err = client.Publish(client.Topics().Notifications(), []byte("Door opened successfully!"), client.QoS(), false)
package mqtt
