package catalog

import (
	"context"

	"github.com/iliyamo/spot-saver/internal/model"
	"github.com/iliyamo/spot-saver/internal/repository"
)

// Source fetches the raw catalog.
type Source interface {
	Fetch(ctx context.Context) ([]model.Location, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]model.Location, error)

func (f SourceFunc) Fetch(ctx context.Context) ([]model.Location, error) { return f(ctx) }

// StaticSource serves a fixed list.
type StaticSource struct {
	Locations []model.Location
}

// NewStaticSource returns a StaticSource over the built-in seed list.
func NewStaticSource() StaticSource { return StaticSource{Locations: SeedLocations()} }

func (s StaticSource) Fetch(context.Context) ([]model.Location, error) {
	out := make([]model.Location, len(s.Locations))
	copy(out, s.Locations)
	return out, nil
}

// RepositorySource reads the catalog tables.
type RepositorySource struct {
	Repo *repository.LocationRepo
}

func (s RepositorySource) Fetch(ctx context.Context) ([]model.Location, error) {
	return s.Repo.ListAll(ctx)
}
