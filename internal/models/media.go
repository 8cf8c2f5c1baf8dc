package models

import (
	"time"
)

// Media represents an uploaded file stored in the object store. FileKey is
// the S3 object key; download access goes through presigned URLs.
type Media struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	OrganizationID *string   `json:"organization_id,omitempty" db:"organization_id"`
	FileName       string    `json:"file_name" db:"file_name"`
	FileKey        string    `json:"file_key" db:"file_key"`
	MimeType       string    `json:"mime_type" db:"mime_type"`
	SizeBytes      int64     `json:"size_bytes" db:"size_bytes"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// RateLimit is a fixed-window counter keyed by operation and subject, for
// example "otp:user@example.com". LastRequest is unix milliseconds.
type RateLimit struct {
	Key         string `json:"key" db:"key"`
	Count       int    `json:"count" db:"count"`
	LastRequest int64  `json:"last_request" db:"last_request"`
}
