package domain

type RoomID int

// Room pairs one customer with the admin pool. A customer has at most one
// active room; its id is stable for the whole session once resolved.
type Room struct {
	ID           RoomID `json:"roomId"`
	CustomerID   int    `json:"customerId"`
	CustomerName string `json:"customerName"`
}
