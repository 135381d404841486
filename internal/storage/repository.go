package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateEvent(ctx context.Context, in EventRecord) error
	GetEvent(ctx context.Context, id string) (EventRecord, error)
	UpdateEvent(ctx context.Context, in EventRecord) error
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, filter EventListFilter) ([]EventRecord, error)

	CreateSeries(ctx context.Context, in SeriesRecord, templates []TemplateRecord) error
	GetSeries(ctx context.Context, id string) (SeriesRecord, []TemplateRecord, error)
	DeleteSeries(ctx context.Context, id string) error
	ListSeries(ctx context.Context, filter SeriesListFilter) ([]SeriesRecord, error)

	// ReplaceSnapshot atomically swaps the persisted state for the given
	// snapshot; LoadSnapshot reads it all back.
	ReplaceSnapshot(ctx context.Context, snap Snapshot) error
	LoadSnapshot(ctx context.Context) (Snapshot, error)
}
