package mqtt

import "fmt"

// Publish sends payload to a topic under the deployment prefix.
//
// Notifications and field commands are published non-retained; only the
// status record is retained. A failed publish is returned, never retried.
//
// Returns:
//   - error: ErrInvalidTopic, ErrForeignTopic, ErrInvalidQoS,
//     ErrPayloadTooLarge, ErrNotConnected or ErrPublishFailed
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := c.checkTopic(topic, false); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	return waitToken(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

func (c *Client) checkTopic(topic string, filter bool) error {
	if err := validateTopic(topic, filter); err != nil {
		return err
	}
	if !c.topics.Owns(topic) {
		return fmt.Errorf("%w: %q is not under %q", ErrForeignTopic, topic, c.topics.Prefix())
	}
	return nil
}
