package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultHandleTimeout 单条消息的处理时限
const DefaultHandleTimeout = 30 * time.Second

// MessageHandler 处理一条消息。返回非 nil 错误时消息被 Nack 且不重新入队。
type MessageHandler func(ctx context.Context, delivery amqp.Delivery) error

// ConsumerOptions 用于配置 Consumer
type ConsumerOptions struct {
	ExchangeName  string // 必须: 绑定的交换机名称
	QueueName     string // 必须: 队列名称
	RoutingKey    string // 必须: 绑定队列到交换机的路由键
	ConsumerTag   string // 可选: 为空时自动生成
	HandleTimeout time.Duration
}

// Consumer 从队列中读取消息并交给 handler，手动确认
type Consumer struct {
	conn          *amqp.Connection
	channel       *amqp.Channel
	queueName     string
	consumerTag   string
	handler       MessageHandler
	handleTimeout time.Duration
	logger        *zap.Logger
	done          chan struct{}
}

// NewConsumer 声明交换机和队列、完成绑定，然后在后台开始消费
func NewConsumer(amqpURL string, handler MessageHandler, opts ConsumerOptions, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	closeAll := func() {
		ch.Close()
		conn.Close()
	}

	if err := declareExchange(ch, opts.ExchangeName); err != nil {
		closeAll()
		return nil, err
	}

	q, err := ch.QueueDeclare(
		opts.QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("rabbitmq: declare queue %q: %w", opts.QueueName, err)
	}

	if err := ch.QueueBind(q.Name, opts.RoutingKey, opts.ExchangeName, false, nil); err != nil {
		closeAll()
		return nil, fmt.Errorf("rabbitmq: bind queue %q to %q with key %q: %w", q.Name, opts.ExchangeName, opts.RoutingKey, err)
	}

	tag := opts.ConsumerTag
	if tag == "" {
		tag = fmt.Sprintf("consumer-%s-%d", q.Name, time.Now().UnixNano())
	}
	if opts.HandleTimeout <= 0 {
		opts.HandleTimeout = DefaultHandleTimeout
	}

	deliveries, err := ch.Consume(q.Name, tag, false, false, false, false, nil)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("rabbitmq: start consuming: %w", err)
	}

	c := &Consumer{
		conn:          conn,
		channel:       ch,
		queueName:     q.Name,
		consumerTag:   tag,
		handler:       handler,
		handleTimeout: opts.HandleTimeout,
		logger:        logger.Named("rabbitmq_consumer").With(zap.String("queue", q.Name), zap.String("tag", tag)),
		done:          make(chan struct{}),
	}
	go c.consume(deliveries)
	c.logger.Info("RabbitMQ Consumer 已启动",
		zap.String("exchange", opts.ExchangeName),
		zap.String("routingKey", opts.RoutingKey),
	)
	return c, nil
}

// consume 处理消息直到 deliveries 被关闭（Cancel 或连接断开）
func (c *Consumer) consume(deliveries <-chan amqp.Delivery) {
	defer close(c.done)
	for d := range deliveries {
		c.handle(d)
	}
	c.logger.Info("消息通道已关闭，消费者停止")
}

func (c *Consumer) handle(d amqp.Delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), c.handleTimeout)
	defer cancel()

	if err := c.handler(ctx, d); err != nil {
		c.logger.Warn("消息处理失败，发送 Nack", zap.ByteString("body", d.Body), zap.Error(err))
		if ackErr := d.Nack(false, false); ackErr != nil {
			c.logger.Error("发送 Nack 失败", zap.Error(ackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		c.logger.Error("发送 Ack 失败", zap.Error(ackErr))
	}
}

// Shutdown 取消订阅，等待正在处理的消息完成后关闭通道和连接
func (c *Consumer) Shutdown(ctx context.Context) error {
	err := c.channel.Cancel(c.consumerTag, false)
	if err != nil {
		c.logger.Error("取消 RabbitMQ 消费者失败", zap.Error(err))
	}

	select {
	case <-c.done:
	case <-ctx.Done():
		c.logger.Warn("等待消费者退出超时")
	}

	if cerr := c.channel.Close(); cerr != nil {
		c.logger.Error("关闭 RabbitMQ 通道失败", zap.Error(cerr))
	}
	if cerr := c.conn.Close(); cerr != nil {
		c.logger.Error("关闭 RabbitMQ 连接失败", zap.Error(cerr))
	}
	c.logger.Info("RabbitMQ Consumer 已关闭")
	return err
}
