// Package notify publishes outbound notifications to RabbitMQ and
// delivers them over SMTP.  Publishing is deliberately lossy from
// the caller's point of view: every error is logged and returned so
// services can ignore failures without interrupting the request
// flow.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sgea/event-attendance/internal/queue"
)

// Publisher pushes notification payloads onto durable queues.  A
// fresh connection per publish keeps the implementation free of
// shared channel state; publish volume here is a handful of messages
// per user action.
type Publisher struct {
	url string
}

// NewPublisher returns a Publisher targeting the given AMQP URL.
func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// RegistrationCreated publishes to the registration.created queue.
func (p *Publisher) RegistrationCreated(ctx context.Context, msg queue.RegistrationCreated) error {
	return p.publish(ctx, queue.RegistrationCreatedQueue, msg)
}

// ConfirmationCodeIssued publishes to the code.issued queue.
func (p *Publisher) ConfirmationCodeIssued(ctx context.Context, msg queue.ConfirmationCodeIssued) error {
	return p.publish(ctx, queue.CodeIssuedQueue, msg)
}

// CertificateIssued publishes to the certificate.issued queue.
func (p *Publisher) CertificateIssued(ctx context.Context, msg queue.CertificateIssued) error {
	return p.publish(ctx, queue.CertificateIssuedQueue, msg)
}

// publish declares the durable queue (idempotent) and sends one
// persistent JSON message on the default exchange.
func (p *Publisher) publish(ctx context.Context, name string, payload any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare %s failed: %v", name, err)
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("rabbitmq: marshal for %s failed: %v", name, err)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", name, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish to %s failed: %v", name, err)
		return err
	}
	return nil
}
