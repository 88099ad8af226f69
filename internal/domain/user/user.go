package user

import (
	"database/sql"
	"time"
)

// User is the account fields the scheduler needs for partner fan-out.
type User struct {
	ID        int64
	Name      string
	PartnerID sql.NullInt64 // linked partner account, if any
	CreatedAt time.Time
	UpdatedAt time.Time
}
