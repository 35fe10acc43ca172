package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/onegreenvn/stockplus-backend/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// OTPEmailQueue carries OTP deliveries from request handlers to the mail sender
const OTPEmailQueue = "otp_emails"

type RabbitMQService struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	stopChan chan struct{}
}

// GetChannel returns the RabbitMQ channel (for use by other services)
func (s *RabbitMQService) GetChannel() *amqp.Channel {
	return s.channel
}

func NewRabbitMQService(cfg config.RabbitMQConfig) (*RabbitMQService, error) {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		OTPEmailQueue, // name
		true,          // durable
		false,         // delete when unused
		false,         // exclusive
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	logrus.Info("RabbitMQ service initialized successfully")
	return &RabbitMQService{
		conn:     conn,
		channel:  channel,
		stopChan: make(chan struct{}),
	}, nil
}

// PublishMessage publishes a JSON message to the specified queue
func (s *RabbitMQService) PublishMessage(queueName string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = s.channel.Publish(
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// SendOTP queues the delivery; the consumer started by StartOTPConsumer sends it
func (s *RabbitMQService) SendOTP(msg OTPMessage) error {
	return s.PublishMessage(OTPEmailQueue, msg)
}

// StartOTPConsumer consumes queued OTP deliveries and hands them to sender
func (s *RabbitMQService) StartOTPConsumer(sender Notifier) error {
	msgs, err := s.channel.Consume(
		OTPEmailQueue, // queue
		"",            // consumer
		true,          // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logrus.Infof("RabbitMQ consumer started for %s queue", OTPEmailQueue)

	go func() {
		for {
			select {
			case <-s.stopChan:
				logrus.Info("RabbitMQ consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					logrus.Warn("RabbitMQ channel closed")
					return
				}
				if err := handleOTPDelivery(msg.Body, sender); err != nil {
					logrus.Errorf("Failed to deliver OTP: %v", err)
				}
			}
		}
	}()

	return nil
}

func handleOTPDelivery(body []byte, sender Notifier) error {
	var msg OTPMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal OTP message: %w", err)
	}
	return sender.SendOTP(msg)
}

// Close stops the consumer and closes the RabbitMQ connection
func (s *RabbitMQService) Close() error {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			logrus.Warnf("Error closing channel: %v", err)
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			logrus.Warnf("Error closing connection: %v", err)
		}
	}
	return nil
}
