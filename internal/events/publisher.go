package events

import (
	"encoding/json"
	"log"

	"github.com/streadway/amqp"
)

// Publisher is notified of every deleted lead so downstream systems can
// react (CRM sync, reporting). Failures here never fail the sweep.
type Publisher interface {
	LeadDeleted(campaignID, leadID int) error
	Close() error
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) LeadDeleted(campaignID, leadID int) error { return nil }
func (NoopPublisher) Close() error                             { return nil }

// AMQPPublisher publishes deletion events onto a durable RabbitMQ queue.
type AMQPPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	q, err := ch.QueueDeclare(
		"lead_deletions", // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{conn: conn, ch: ch, queue: q.Name}, nil
}

func (p *AMQPPublisher) LeadDeleted(campaignID, leadID int) error {
	body, _ := json.Marshal(map[string]int{
		"campaign_id": campaignID,
		"lead_id":     leadID,
	})
	return p.ch.Publish(
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		log.Println("Failed to close channel:", err)
	}
	return p.conn.Close()
}
