package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Mailer delivers one outbound message.  Implemented by
// notify.SMTPMailer; a nil mailer routes messages to the outbox log
// instead, so the consumer is useful without an SMTP relay.
type Mailer interface {
	Send(to, subject, body string) error
}

var consumerQueues = []string{RegistrationCreatedQueue, CodeIssuedQueue, CertificateIssuedQueue}

// StartConsumer connects to RabbitMQ, declares the notification
// queues and consumes them, rendering each payload into mail.  It
// runs a reconnect loop with exponential backoff and never returns
// under normal operation; call it on its own goroutine.  Messages
// that fail to process are rejected without requeue so a poison
// message cannot wedge the consumer.
func StartConsumer(url string, mailer Mailer) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("notify-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, mailer); err != nil {
			log.Printf("notify-consumer: consume loop ended: %v; reconnecting", err)
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, mailer Mailer) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notify-consumer: set QoS failed: %v", err)
	}

	done := make(chan error, len(consumerQueues))
	for _, name := range consumerQueues {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		go func(name string, msgs <-chan amqp.Delivery) {
			for d := range msgs {
				if err := handleMessage(name, d.Body, mailer); err != nil {
					log.Printf("notify-consumer: handle %s failed: %v", name, err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
			done <- errors.New("deliveries channel closed: " + name)
		}(name, msgs)
	}
	return <-done
}

func handleMessage(queueName string, body []byte, mailer Mailer) error {
	switch queueName {
	case RegistrationCreatedQueue:
		var ev RegistrationCreated
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		subject := "Registration confirmed: " + ev.EventTitle
		text := fmt.Sprintf("Hello %s,\n\nYour registration for %q was received.\n\nWhen: %s to %s\nWhere: %s\n\nSee you there!",
			ev.Participant.Name, ev.EventTitle, ev.StartsAt, ev.EndsAt, ev.Venue)
		return deliver(mailer, ev.Participant, subject, text)

	case CodeIssuedQueue:
		var ev ConfirmationCodeIssued
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		subject := "Attendance code for " + ev.EventTitle
		for _, rcpt := range ev.Recipients {
			text := fmt.Sprintf("Hello %s,\n\nThe attendance confirmation code for %q is:\n\n    %s\n\nSubmit it after the event ends to confirm your presence and receive your certificate.",
				rcpt.Name, ev.EventTitle, ev.Code)
			if err := deliver(mailer, rcpt, subject, text); err != nil {
				return err
			}
		}
		return nil

	case CertificateIssuedQueue:
		var ev CertificateIssued
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		subject := "Your certificate is ready"
		text := fmt.Sprintf("Hello %s,\n\nYour attendance for %q was confirmed on %s and your certificate is now available in the portal.",
			ev.Participant.Name, ev.EventTitle, ev.IssuedAt)
		return deliver(mailer, ev.Participant, subject, text)
	}
	return fmt.Errorf("unknown queue %q", queueName)
}

// deliver sends through the mailer when one is configured, otherwise
// appends to the outbox log so nothing is silently dropped in
// environments without SMTP.
func deliver(mailer Mailer, rcpt Recipient, subject, body string) error {
	if mailer != nil {
		return mailer.Send(rcpt.Email, subject, body)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "outbox.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open outbox: %w", err)
	}
	defer f.Close()
	line := fmt.Sprintf("[%s] to=%s subject=%q body=%q\n",
		time.Now().UTC().Format(time.RFC3339), rcpt.Email, subject, body)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write outbox: %w", err)
	}
	return nil
}
