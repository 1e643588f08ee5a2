package etl

import (
	"context"

	"github.com/BartekS5/npiload/pkg/models"
)

// Sink persists the payload somewhere the warehouse can read it from.
type Sink interface {
	Stage(ctx context.Context, payload *models.Payload) (*models.StagedFile, error)
	// Cleanup releases what Stage created. It must tolerate a nil or
	// partially created file.
	Cleanup(file *models.StagedFile) error
}

// Loader replaces the warehouse table contents from a staged file.
type Loader interface {
	Load(ctx context.Context, file *models.StagedFile) (*models.LoadResult, error)
}
