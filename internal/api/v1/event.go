package v1

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is the atomic unit of the system.
// It separates the "Envelope" (System Attributes) from the "Letter" (Data).
type Event struct {
	// --- System Attributes (The Envelope) ---

	// ID is the unique immutable identifier provided by the producer.
	// It is the deduplication key: redelivery of the same ID must never
	// double-count. An event without an ID is inadmissible.
	ID string `json:"id"`

	// Type is the domain-specific event name (e.g., "orders.created").
	// Reducer dispatch and category routing key off the delivery subject;
	// ingestion defaults the subject to Type when the producer sends none.
	Type string `json:"type"`

	// Timestamp is when the event happened in the real world (producer clock).
	// Optional: a zero Timestamp means "use arrival time".
	Timestamp time.Time `json:"timestamp,omitempty"`

	// Metadata is a generic key-value store for context (e.g., source, trace_id).
	Metadata map[string]string `json:"metadata,omitempty"`

	// --- Producer Payload (The Letter) ---

	// Data is the domain-specific payload. Opaque to the pipeline; reducers
	// pull the fields they care about and treat missing fields as zero.
	Data map[string]interface{} `json:"data"`
}

// eventWire mirrors Event but defers timestamp parsing so a malformed
// timestamp degrades to "absent" instead of failing the whole envelope.
type eventWire struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp json.RawMessage        `json:"timestamp,omitempty"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
	Data      map[string]interface{} `json:"data"`
}

// UnmarshalJSON decodes an event envelope. A missing or malformed timestamp
// yields a zero Timestamp; the pipeline falls back to arrival time.
func (e *Event) UnmarshalJSON(b []byte) error {
	var w eventWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	e.ID = w.ID
	e.Type = w.Type
	e.Metadata = w.Metadata
	e.Data = w.Data
	e.Timestamp = time.Time{}

	if len(w.Timestamp) > 0 && string(w.Timestamp) != "null" {
		var ts time.Time
		if err := json.Unmarshal(w.Timestamp, &ts); err == nil {
			e.Timestamp = ts
		}
	}

	return nil
}

// Validate ensures the event has the required system attributes.
// Used by the HTTP ingestion path. The pipeline performs its own
// missing-id short circuit and reports it as an outcome, not an error.
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}

	if e.Type == "" {
		return fmt.Errorf("type is required")
	}

	return nil
}
