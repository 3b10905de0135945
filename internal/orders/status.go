package orders

type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestRejected RequestStatus = "REJECTED"
)

// A rejected request is terminal; retrying a deletion means filing a
// fresh request. Approval has no persisted terminal state because the
// request row is deleted together with its order.
var validNext = map[RequestStatus]map[RequestStatus]bool{
	RequestPending:  {RequestRejected: true},
	RequestRejected: {},
}

func CanTransition(from, to RequestStatus) bool {
	return validNext[from][to]
}
