package events

import "time"

// Envelope is the canonical event shape appended to module outboxes and
// relayed to the bus. PartitionKey groups all events of one entity so
// observers can replay a single identifier's history in order.
type Envelope struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	SourceService  string    `json:"source_service"`
	OccurredAtUTC  time.Time `json:"occurred_at_utc"`
	EntityType     string    `json:"entity_type"`
	EntityID       string    `json:"entity_id"`
	PartitionKey   string    `json:"partition_key"`
	PayloadVersion int       `json:"payload_version"`
	Payload        any       `json:"payload"`
}
