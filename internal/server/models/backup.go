package models

import "time"

// Backup is the metadata row for one stored content blob. Filename is the
// on-disk name, which may differ from the uploaded name after collision
// renaming. The blob itself is ciphertext opaque to the server.
type Backup struct {
	ID         string
	UserID     string
	Filename   string
	Size       int64
	Checksum   string
	UploadedAt time.Time
}
