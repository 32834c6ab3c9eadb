package order

import "time"

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
	StatusCanceled Status = "CANCELED"
)

// Order is the server's representation. The client never patches it locally;
// status changes are re-fetched.
type Order struct {
	ID        int64     `json:"id"`
	SellerID  int64     `json:"sellerId"`
	Items     []Item    `json:"items"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type Item struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// createRequest carries no prices: they are server-authoritative at order
// time, the cart's snapshots are display-only.
type createRequest struct {
	SellerID int64  `json:"sellerId"`
	Items    []Item `json:"items"`
}
