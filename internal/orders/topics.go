package orders

const (
	// TopicOrderEvents carries every lifecycle event (created, status changed,
	// payment recorded, stock rejected); event_type in the envelope tells them
	// apart.
	TopicOrderEvents = "order.events"

	// TopicOrderFinalized carries only terminal transitions; the reconciler
	// worker consumes it to re-drive reservation release for cancellations.
	TopicOrderFinalized = "order.finalized"
)

// Partition key = order_id, so every event for one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
