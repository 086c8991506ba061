package ledger

import "time"

type ReservationRequest struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

type ReservationResponse struct {
	ReservationID string    `json:"reservation_id"`
	AccountID     string    `json:"account_id"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
