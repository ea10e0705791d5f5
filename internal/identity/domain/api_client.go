package domain

import "time"

// APIClient identifies a trusted service caller of the internal API, such as
// the companion application sharing the user table. Keys can be switched off
// without deleting the row.
type APIClient struct {
	ID        int64
	Name      string
	APIKey    string
	Active    bool
	CreatedAt time.Time
}
