package publish

import (
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/groundwatch/sentinel/pkg/alert"
)

// AMQPPublisher publishes alert and state records to a fanout exchange
// per topic root (spec.md §6's publishTopics.alert/state), reconnecting
// its channel on close notifications. Grounded on
// billglover-go-adsb-console/updater.go's amqp.Dial + ExchangeDeclare +
// NotifyClose reconnection loop.
type AMQPPublisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel

	alertExchange string
	stateExchange string

	closeCh chan struct{}
}

// NewAMQPPublisher dials url and declares the alert/state fanout
// exchanges named by cfg's publish topics.
func NewAMQPPublisher(url, alertTopic, stateTopic string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("publish: amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("publish: amqp channel: %w", err)
	}

	p := &AMQPPublisher{
		conn:          conn,
		ch:            ch,
		alertExchange: alertTopic,
		stateExchange: stateTopic,
		closeCh:       make(chan struct{}),
	}

	if err := p.declareExchanges(); err != nil {
		conn.Close()
		return nil, err
	}

	closures := conn.NotifyClose(make(chan *amqp.Error))
	go p.watchClose(closures)

	return p, nil
}

func (p *AMQPPublisher) declareExchanges() error {
	for _, name := range []string{p.alertExchange, p.stateExchange} {
		if err := p.ch.ExchangeDeclare(name, "fanout", false, false, false, false, nil); err != nil {
			return fmt.Errorf("publish: declare exchange %s: %w", name, err)
		}
	}
	return nil
}

func (p *AMQPPublisher) watchClose(closures chan *amqp.Error) {
	for {
		select {
		case <-p.closeCh:
			return
		case _, ok := <-closures:
			if !ok {
				return
			}
			p.mu.Lock()
			ch, err := p.conn.Channel()
			if err == nil {
				p.ch = ch
				p.declareExchanges()
			}
			p.mu.Unlock()
		}
	}
}

func (p *AMQPPublisher) publish(exchange, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Publish(exchange, routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Transient,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Body:         body,
	})
}

// PublishAlert publishes to "<alertTopic>/insert" or "<alertTopic>/remove".
func (p *AMQPPublisher) PublishAlert(kind AlertKind, a alert.Alert) error {
	body, err := marshalAlert(kind, a)
	if err != nil {
		return fmt.Errorf("publish: marshal alert: %w", err)
	}
	return p.publish(p.alertExchange, string(kind), body)
}

// PublishState publishes to "<stateTopic>/loop".
func (p *AMQPPublisher) PublishState(s StateRecord) error {
	body, err := marshalState(s)
	if err != nil {
		return fmt.Errorf("publish: marshal state: %w", err)
	}
	return p.publish(p.stateExchange, "loop", body)
}

// Close shuts down the channel and connection.
func (p *AMQPPublisher) Close() error {
	close(p.closeCh)
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
