package model

// Setup holds extra engine statements run once after the S3 bootstrap
type Setup struct {
	OnStart OnStart `yaml:"onStart"`
}

type OnStart struct {
	Queries []string `yaml:"query"`
}
