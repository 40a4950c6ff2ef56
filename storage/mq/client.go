package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"ConsoleExt/config"
)

// 交换机与队列拓扑
const (
	NotificationExchange = "notification.topic"
	EventExchange        = "events.topic"

	DispatchQueue      = "notification.dispatch"
	DispatchRoutingKey = "notification.dispatch"
)

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

func Init() error {
	connOnce.Do(func() {
		url := config.Cfg.GetRabbitMQURL()

		conn, connErr = amqp.Dial(url)
		if connErr != nil {
			return
		}

		connErr = declareTopology()
	})

	return connErr
}

// Connection 返回底层连接，供消费者各自开 channel
func Connection() *amqp.Connection {
	return conn
}

// declareTopology 声明交换机、队列与绑定，publisher 与 consumer 共用
func declareTopology() error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open topology channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(NotificationExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", NotificationExchange, err)
	}

	if err := ch.ExchangeDeclare(EventExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", EventExchange, err)
	}

	if _, err := ch.QueueDeclare(DispatchQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", DispatchQueue, err)
	}

	if err := ch.QueueBind(DispatchQueue, DispatchRoutingKey, NotificationExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", DispatchQueue, err)
	}

	return nil
}

func Close(ctx context.Context) error {
	if conn == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
