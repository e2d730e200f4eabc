package config

import (
	"os"

	"github.com/gigapi/compactor/model"
	"github.com/gigapi/compactor/status"
	"gopkg.in/yaml.v3"
)

// LoadSetup reads the YAML file of extra engine statements
func LoadSetup(filename string) (*model.Setup, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, status.Init("read setup file "+filename, err)
	}

	var setup model.Setup
	err = yaml.Unmarshal(data, &setup)
	if err != nil {
		return nil, status.Init("parse setup file "+filename, err)
	}

	return &setup, nil
}
