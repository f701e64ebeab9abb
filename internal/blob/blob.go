// Package blob selects an object store backend. Callers depend on blob.Store
// and never import the infra implementations directly.
package blob

import (
	"context"
	"fmt"

	"volunteercore/internal/blob/core"
	"volunteercore/internal/infra/blob/fs"
	memorystore "volunteercore/internal/infra/blob/memory"
	infraS3 "volunteercore/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
	// S3Config configures the S3 driver.
	S3Config = infraS3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = core.ErrNotFound
	// ErrExists is returned when Put targets an existing key.
	ErrExists = core.ErrExists
)

// Config selects and parameterizes a backend. An empty Driver means fs.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open constructs the backend named by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return infraS3.New(ctx, cfg.S3)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memorystore.New() }

// NewMockS3ForTests exposes the S3 store over a fake bucket for cross-package tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
