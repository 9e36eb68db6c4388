// Package queue publishes scan lifecycle events to RabbitMQ so downstream
// consumers (dashboards, alerting) can react to completed scans. Publishing
// is best-effort from the pipeline's point of view; the caller logs and
// continues on error.
package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"
)

// ScanEventQueue is the queue scan-completed events are published to.
const ScanEventQueue = "neurasec.scan.events"

// ScanEvent is the message body published after each completed scan.
type ScanEvent struct {
	URL       string    `json:"url"`
	Verdict   string    `json:"verdict"`
	Score     float64   `json:"score"`
	FromCache bool      `json:"from_cache"`
	ScannedAt time.Time `json:"scanned_at"`
}

// Publisher sends scan events to a RabbitMQ broker. Connections are opened
// per publish; event volume is one message per scan, so a held channel is
// not worth the reconnect handling.
type Publisher struct {
	brokerURL string
}

// NewPublisher creates a publisher for the given AMQP broker URL.
func NewPublisher(brokerURL string) *Publisher {
	return &Publisher{brokerURL: brokerURL}
}

// PublishScanEvent marshals the event and sends it to ScanEventQueue.
func (p *Publisher) PublishScanEvent(event ScanEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal scan event: %w", err)
	}
	return p.send(ScanEventQueue, body)
}

func (p *Publisher) send(qName string, body []byte) error {
	conn, err := amqp.Dial(p.brokerURL)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		qName, // name
		false, // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue '%s': %w", qName, err)
	}

	err = ch.Publish(
		"",     // exchange
		q.Name, // routing key
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("publish to '%s': %w", qName, err)
	}

	slog.Debug("Published scan event", "queue", qName)
	return nil
}
