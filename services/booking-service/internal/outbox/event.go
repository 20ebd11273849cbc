package outbox

// Event is the envelope written to the outbox table. The Kafka topic name
// equals EventType, one event type per topic.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
