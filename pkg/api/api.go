// Package api defines the backend contracts the data browser is built on and
// the error kinds those backends report.
package api

import (
	"context"

	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

// RecordAPI fetches and mutates the records of a model.
//
// A page request that hits a missing model or an out-of-range offset returns
// an empty page, not an error.
type RecordAPI interface {
	FetchCount(ctx context.Context, m model.Model, filter model.Filter) (int, error)
	FetchPage(ctx context.Context, m model.Model, filter model.Filter, order model.OrderBy, skip, first int) ([]*model.Record, error)

	Create(ctx context.Context, m model.Model, values map[string]any) (*model.Record, error)
	Update(ctx context.Context, m model.Model, id, field string, value any) (*model.Record, error)
	Delete(ctx context.Context, m model.Model, id string) error
	CreateMany(ctx context.Context, m model.Model, records []map[string]any) error
}

// SchemaAPI lists and extends the models of a project.
type SchemaAPI interface {
	ListModels(ctx context.Context) ([]model.Model, error)
	AddModel(ctx context.Context, name string) (model.Model, error)
}

// Backend is a complete data source for the browser.
type Backend interface {
	RecordAPI
	SchemaAPI
	Close() error
}
