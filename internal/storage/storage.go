package storage

import "yieldScope/internal/model"

// Storage defines a sink for evaluation output.
type Storage interface {
	PutAccrualResults(results []model.AccrualResult) error
	PutSourceYields(yields []model.SourceYield) error
}
