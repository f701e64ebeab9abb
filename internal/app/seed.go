package app

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"volunteercore/pkg/domain"
)

// Fixtures is the directory data loaded by the seed command.
type Fixtures struct {
	Requesters     []domain.Requester     `yaml:"requesters"`
	Programs       []domain.Program       `yaml:"programs"`
	Administrators []domain.Administrator `yaml:"administrators"`
}

// SeedCounts reports how many records of each kind were written.
type SeedCounts struct {
	Requesters     int `json:"requesters"`
	Programs       int `json:"programs"`
	Administrators int `json:"administrators"`
}

// DecodeFixtures parses YAML fixtures and rejects records without an id.
func DecodeFixtures(r io.Reader) (Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return Fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}
	for i, r := range f.Requesters {
		if r.ID == "" {
			return Fixtures{}, fmt.Errorf("requester %d: id required", i)
		}
	}
	for i, p := range f.Programs {
		if p.ID == "" || p.OrganizationID == "" {
			return Fixtures{}, fmt.Errorf("program %d: id and organization_id required", i)
		}
	}
	for i, a := range f.Administrators {
		if a.ID == "" || a.OrganizationID == "" {
			return Fixtures{}, fmt.Errorf("administrator %d: id and organization_id required", i)
		}
	}
	return f, nil
}

// Seed upserts f into w.
func Seed(ctx context.Context, w domain.DirectoryWriter, f Fixtures) (SeedCounts, error) {
	var counts SeedCounts
	for _, r := range f.Requesters {
		if err := w.UpsertRequester(ctx, r); err != nil {
			return counts, fmt.Errorf("requester %s: %w", r.ID, err)
		}
		counts.Requesters++
	}
	for _, p := range f.Programs {
		if err := w.UpsertProgram(ctx, p); err != nil {
			return counts, fmt.Errorf("program %s: %w", p.ID, err)
		}
		counts.Programs++
	}
	for _, a := range f.Administrators {
		if err := w.UpsertAdministrator(ctx, a); err != nil {
			return counts, fmt.Errorf("administrator %s: %w", a.ID, err)
		}
		counts.Administrators++
	}
	return counts, nil
}
