package orders

const (
	TopicOrderPlaced = "orders.placed"
	TopicMovements   = "inventory.movements"
)

// Partition key = order_id, so every event of one order keeps its ordering.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
