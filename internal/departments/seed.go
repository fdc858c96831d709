package departments

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"complaints_portal_backend/internal/complaints/domain"
	"complaints_portal_backend/platform/logger"
)

// seedFile is the YAML shape for initial department configuration.
//
//	departments:
//	  - type: pothole
//	    name: Roads
//	    endpoint: https://roads.example.gov/work-orders
//	    primary: true
//	    priority: 1
type seedFile struct {
	Departments []seedEntry `yaml:"departments"`
}

type seedEntry struct {
	Type     string `yaml:"type"`
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
	Primary  bool   `yaml:"primary"`
	Priority int    `yaml:"priority"`
}

// SeedFromFile upserts the department mappings from a YAML file into the
// store and reloads the registry snapshot. A missing file is not an error;
// the registry simply starts empty.
func SeedFromFile(ctx context.Context, reg *Registry, path string, log *logger.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("department seed file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read department seed: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse department seed: %w", err)
	}

	for _, entry := range seed.Departments {
		t := domain.Type(entry.Type)
		if !domain.IsKnownType(t) {
			log.Warn("department seed entry has unknown complaint type, skipping",
				"type", entry.Type, "name", entry.Name)
			continue
		}
		if _, err := reg.Upsert(ctx, Department{
			Type:        t,
			Name:        entry.Name,
			EndpointURL: entry.Endpoint,
			IsPrimary:   entry.Primary,
			Priority:    entry.Priority,
		}); err != nil {
			return fmt.Errorf("seed department %s/%s: %w", entry.Type, entry.Name, err)
		}
	}

	log.Info("department registry seeded", "entries", len(seed.Departments), "version", reg.Version())
	return nil
}
