package model

import "time"

// RunStats summarizes a single compaction run
type RunStats struct {
	RunID         string        `json:"run_id"`
	Batches       int           `json:"batches"`
	FilesIngested int           `json:"files_ingested"`
	Progress      uint64        `json:"progress"`
	Outputs       []string      `json:"outputs"`
	Elapsed       time.Duration `json:"elapsed"`
}
