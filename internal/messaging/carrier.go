package messaging

import "github.com/segmentio/kafka-go"

// MessageCarrier adapts Kafka message headers to the OpenTelemetry
// TextMapCarrier interface so trace context can ride along with events.
type MessageCarrier struct {
	msg *kafka.Message
}

func NewMessageCarrier(msg *kafka.Message) *MessageCarrier {
	return &MessageCarrier{msg: msg}
}

func (c *MessageCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Set replaces any existing header with the same key. Duplicate headers are
// legal in Kafka but confuse propagators.
func (c *MessageCarrier) Set(key, value string) {
	headers := c.msg.Headers[:0]
	for _, h := range c.msg.Headers {
		if h.Key != key {
			headers = append(headers, h)
		}
	}
	c.msg.Headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *MessageCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
