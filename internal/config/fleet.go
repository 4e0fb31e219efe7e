package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VehicleConfig is one vehicle entry of fleet.yaml.
type VehicleConfig struct {
	ID     string  `yaml:"id"`
	Brand  string  `yaml:"brand"`
	Model  string  `yaml:"model"`
	Plate  string  `yaml:"plate"`
	Price  float64 `yaml:"price"`
	Status string  `yaml:"status"`
}

// CustomerConfig is one customer entry of fleet.yaml.
type CustomerConfig struct {
	ID       string `yaml:"id"`
	FullName string `yaml:"full_name"`
	Email    string `yaml:"email"`
	Phone    string `yaml:"phone"`
}

// FleetConfig is the root of fleet.yaml.
type FleetConfig struct {
	Vehicles  []VehicleConfig  `yaml:"vehicles"`
	Customers []CustomerConfig `yaml:"customers"`
}

// LoadFleetConfig loads and validates the fleet file.
func LoadFleetConfig(path string) (*FleetConfig, error) {
	if path == "" {
		path = "configs/fleet.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fleet config: %w", err)
	}

	var cfg FleetConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse fleet config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate fleet config: %w", err)
	}

	for i := range cfg.Vehicles {
		if cfg.Vehicles[i].Status == "" {
			cfg.Vehicles[i].Status = "available"
		}
	}
	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *FleetConfig) Validate() error {
	if len(c.Vehicles) == 0 {
		return fmt.Errorf("no vehicles defined")
	}

	ids := make(map[string]bool)
	for i, v := range c.Vehicles {
		if v.ID == "" {
			return fmt.Errorf("vehicle[%d]: id is required", i)
		}
		if ids[v.ID] {
			return fmt.Errorf("vehicle[%d]: duplicate id '%s'", i, v.ID)
		}
		ids[v.ID] = true

		if v.Brand == "" && v.Model == "" {
			return fmt.Errorf("vehicle[%d]: brand or model is required", i)
		}
		if v.Price < 0 {
			return fmt.Errorf("vehicle[%d]: price cannot be negative", i)
		}
		switch v.Status {
		case "", "available", "maintenance", "retired":
		default:
			return fmt.Errorf("vehicle[%d]: invalid status '%s'", i, v.Status)
		}
	}

	customers := make(map[string]bool)
	for i, cu := range c.Customers {
		if cu.ID == "" {
			return fmt.Errorf("customer[%d]: id is required", i)
		}
		if customers[cu.ID] {
			return fmt.Errorf("customer[%d]: duplicate id '%s'", i, cu.ID)
		}
		customers[cu.ID] = true
		if cu.FullName == "" {
			return fmt.Errorf("customer[%d]: full_name is required", i)
		}
	}
	return nil
}
