package storage

import "launchpad/internal/model"

// Storage defines a sink for encoded engine logs.
type Storage interface {
	PutLogBatch(logs []model.LogRecord) error
}
