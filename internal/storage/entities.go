package storage

import "time"

// EventRecord is the row shape for a stored event. Work sessions are rows
// whose ParentID points at their deadline task.
type EventRecord struct {
	ID               string
	Name             string
	Description      string
	StartAt          *time.Time
	EndAt            time.Time
	SessionLength    time.Duration
	HoursNeeded      time.Duration
	StartWorkingDays int
	Completed        bool
	SeriesID         string
	ParentID         *string
}

// SeriesRecord captures a recurring series' stop condition and cycle shape.
// StopKind is "count" or "interval"; the stop columns the kind does not use
// stay zero.
type SeriesRecord struct {
	ID          string
	CycleLength int
	StopKind    string
	StopCount   int
	StopFrom    *time.Time
	StopTo      *time.Time
}

// TemplateRecord is one template event of a series, ordered by Position.
type TemplateRecord struct {
	SeriesID    string
	Position    int
	ID          string
	Name        string
	Description string
	StartAt     *time.Time
	EndAt       time.Time
}

// InstanceRecord is one generated occurrence of a series, grouped under the
// cycle it belongs to. Persisting instances keeps cycles reshaped by repairs
// intact across restarts.
type InstanceRecord struct {
	SeriesID    string
	CycleAt     time.Time
	Position    int
	ID          string
	Name        string
	Description string
	StartAt     *time.Time
	EndAt       time.Time
}

// Snapshot is the complete persisted state: every event row plus every
// series with its templates and generated instances.
type Snapshot struct {
	Events    []EventRecord
	Series    []SeriesRecord
	Templates []TemplateRecord
	Instances []InstanceRecord
}

type EventListFilter struct {
	SeriesID string
	ParentID string
	Limit    int
	Offset   int
}

type SeriesListFilter struct {
	Limit  int
	Offset int
}
