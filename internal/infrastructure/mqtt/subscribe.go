package mqtt

import "fmt"

// Subscribe routes messages matching topic to handler.
//
// The filter may use + for one whole level and # as the final level, and
// must lie under the deployment prefix. The subscription is remembered and
// restored after every reconnect; subscribing again to the same filter
// replaces the handler.
//
// Returns:
//   - error: ErrInvalidTopic, ErrForeignTopic, ErrInvalidQoS,
//     ErrNotConnected or ErrSubscribeFailed
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := c.checkTopic(topic, true); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %q", ErrSubscribeFailed, topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))
	if err := waitToken(token, ErrSubscribeFailed); err != nil {
		return err
	}

	c.mu.Lock()
	if c.subs == nil {
		c.subs = make(map[string]subscription)
	}
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()
	return nil
}

// Unsubscribe drops a filter given to Subscribe. It is forgotten even if the
// broker does not answer, so it is not restored on reconnect.
func (c *Client) Unsubscribe(topic string) error {
	if err := c.checkTopic(topic, true); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.subs, topic)
	c.mu.Unlock()

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return waitToken(c.client.Unsubscribe(topic), ErrSubscribeFailed)
}
