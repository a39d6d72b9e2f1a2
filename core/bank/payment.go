package bank

import (
	"time"

	"github.com/google/uuid"
)

// Payment is a pending top-up awaiting gateway settlement. A row existing
// means the funds have not been credited yet; settlement credits the owning
// account and deletes the row in one transaction.
type Payment struct {
	ID        uuid.UUID `db:"id"`
	Amount    Amount    `db:"amount"`
	AccountID int64     `db:"account_id"`
	CreatedAt time.Time `db:"created_at"`
}
