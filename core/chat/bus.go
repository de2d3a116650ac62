package chat

import (
	"context"
	"fmt"

	"auralis/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/nats-io/nats.go"
)

// 总线主题
const (
	TopicMessageCreated  = "message.created"
	TopicPresenceChanged = "presence.changed"
	TopicActivityUpdated = "activity.updated"
)

const busBuffer = 256

// Bus 实例间的事件分发
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe 返回的通道在 ctx 结束或总线关闭后关闭
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
	Close() error
}

// MemoryBus 基于 watermill gochannel 的进程内总线
type MemoryBus struct {
	pubsub *gochannel.GoChannel
}

// NewMemoryBus 创建进程内总线
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: busBuffer}, watermill.NopLogger{}),
	}
}

func (b *MemoryBus) Publish(_ context.Context, topic string, payload []byte) error {
	return b.pubsub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload))
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan []byte, busBuffer)
	go func() {
		defer close(out)
		for msg := range messages {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				msg.Ack()
				return
			}
			msg.Ack()
		}
	}()
	return out, nil
}

func (b *MemoryBus) Close() error {
	return b.pubsub.Close()
}

// NATSBus 多实例部署时通过 NATS 分发事件
type NATSBus struct {
	conn *nats.Conn
}

// NewNATSBus 连接 NATS
func NewNATSBus(url string) (*NATSBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("auralis-chat"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", logger.ErrorField(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", logger.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATSBus{conn: conn}, nil
}

func (b *NATSBus) Publish(_ context.Context, topic string, payload []byte) error {
	return b.conn.Publish(topic, payload)
}

func (b *NATSBus) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	in := make(chan *nats.Msg, busBuffer)
	sub, err := b.conn.ChanSubscribe(topic, in)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan []byte, busBuffer)
	go func() {
		defer close(out)
		defer func() {
			if err := sub.Unsubscribe(); err != nil && b.conn.IsConnected() {
				logger.Warn("NATS unsubscribe failed", logger.String("topic", topic), logger.ErrorField(err))
			}
		}()
		for {
			select {
			case msg := <-in:
				select {
				case out <- msg.Data:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *NATSBus) Close() error {
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return err
	}
	return nil
}
