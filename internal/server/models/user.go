// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered account. Every user owns exactly one symmetric
// encryption key, generated at registration and immutable for the account's
// lifetime. The server stores the key only to hand it back to the client;
// all encryption happens client-side.
type User struct {
	ID            string
	UserName      string
	PasswordHash  []byte
	EncryptionKey []byte
	CreatedAt     time.Time
}
