package model

// params for Flags
type CommandLineFlags struct {
	Config   *string `json:"config"`
	LogLevel *string `json:"log_level"`
	Listen   *string `json:"listen"`
}
