package orders

const (
	TopicOrderCreated      = "pos.order.created"
	TopicOrderRemoved      = "pos.order.removed"
	TopicDeletionRequested = "pos.deletion.requested"
	TopicDeletionResolved  = "pos.deletion.resolved"
)

// Partition key = order_id, so every event for one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
