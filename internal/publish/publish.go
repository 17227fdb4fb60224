// Package publish implements the MQTT-shaped publish interface from
// spec.md §6 ("MQTT publish (optional)") and its `/insert` `/remove`
// `/loop` subtopics, against the transports the retrieval pack
// actually carries: a fanout AMQP exchange (grounded on
// billglover-go-adsb-console/updater.go) and a broadcast WebSocket hub
// (grounded on other_examples' SwarmC2 backend), behind one Publisher
// interface so the scheduler does not care which is wired in.
package publish

import (
	"encoding/json"
	"time"

	"github.com/groundwatch/sentinel/pkg/alert"
)

// StateRecord is the periodic snapshot published to publishTopics.state
// (spec.md §6), carrying the cycle's stats.
type StateRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	AircraftCount int       `json:"aircraftCount"`
	ActiveAlerts  int       `json:"activeAlerts"`
}

// Publisher is implemented by every output transport. PublishAlert is
// called once per inserted or removed alert (subtopic selected by
// Kind); PublishState is called once per cycle.
type Publisher interface {
	PublishAlert(kind AlertKind, a alert.Alert) error
	PublishState(s StateRecord) error
	Close() error
}

// AlertKind selects the `/insert` or `/remove` subtopic for one alert event.
type AlertKind string

const (
	AlertInsert AlertKind = "insert"
	AlertRemove AlertKind = "remove"
)

// alertEnvelope is the JSON payload shape published for both insert
// and remove events (spec.md §6: "Payloads are JSON-encoded alert or
// stats records").
type alertEnvelope struct {
	Kind  AlertKind   `json:"kind"`
	Alert alert.Alert `json:"alert"`
}

func marshalAlert(kind AlertKind, a alert.Alert) ([]byte, error) {
	return json.Marshal(alertEnvelope{Kind: kind, Alert: a})
}

func marshalState(s StateRecord) ([]byte, error) {
	return json.Marshal(s)
}

// NopPublisher discards everything. cmd/sentinel does not use it: with
// mqtt.enabled false it publishes to the WebSocket hub alone.
type NopPublisher struct{}

func (NopPublisher) PublishAlert(AlertKind, alert.Alert) error { return nil }
func (NopPublisher) PublishState(StateRecord) error            { return nil }
func (NopPublisher) Close() error                              { return nil }

// Multi fans out to every wrapped Publisher, continuing past
// individual failures and returning the first error encountered.
type Multi struct {
	Publishers []Publisher
}

func (m Multi) PublishAlert(kind AlertKind, a alert.Alert) error {
	var firstErr error
	for _, p := range m.Publishers {
		if err := p.PublishAlert(kind, a); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m Multi) PublishState(s StateRecord) error {
	var firstErr error
	for _, p := range m.Publishers {
		if err := p.PublishState(s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m Multi) Close() error {
	var firstErr error
	for _, p := range m.Publishers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
