package bank

import (
	"math/rand"
	"strconv"
	"time"
)

// Account is a registered wallet owner identified by a phone number.
// AccountNo is a system-generated six digit number usable as a transfer
// destination alongside the phone.
type Account struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Phone     string    `db:"phone"`
	AccountNo string    `db:"account_no"`
	Balance   Amount    `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
}

// AccountNoLength is the length of generated account numbers.
const AccountNoLength = 6

func newAccountNo() string {
	return strconv.Itoa(rand.Intn(900000) + 100000)
}
