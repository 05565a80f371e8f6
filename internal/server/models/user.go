package models

import "time"

// User is a registered account. PasswordHash holds an argon2id PHC string and
// is never rendered by a transport.
type User struct {
	ID           int64
	UserName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
