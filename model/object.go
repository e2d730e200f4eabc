package model

import "time"

// ObjectItem is one file on a lakeFS branch. Path is relative to the branch.
type ObjectItem struct {
	Path        string    `json:"path"`
	Checksum    string    `json:"checksum"`
	SizeBytes   int64     `json:"size_bytes"`
	Mtime       time.Time `json:"mtime"`
	ContentType string    `json:"content_type"`
}
