// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package core

import (
	"runtime"
	"time"
)

// Configuration describes the configuration for the core component.
type Configuration struct {
	// Number of workers for the core component
	Workers int `validate:"min=1"`
	// TargetFlushLatency is the flush duration the batch size
	// controller aims for.
	TargetFlushLatency time.Duration `validate:"min=1ms"`
	// MinBatchSize is the lower bound of the batch size controller.
	MinBatchSize int `validate:"min=1"`
	// MaxBatchSize is the upper bound of the batch size controller.
	MaxBatchSize int `validate:"min=1,gtefield=MinBatchSize"`
	// FlushInterval is the maximum time an item may wait in the
	// pending queue before a flush is forced.
	FlushInterval time.Duration `validate:"min=100ms"`
}

// DefaultConfiguration represents the default configuration for the core component.
func DefaultConfiguration() Configuration {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return Configuration{
		Workers:            workers,
		TargetFlushLatency: 100 * time.Millisecond,
		MinBatchSize:       10,
		MaxBatchSize:       1000,
		FlushInterval:      5 * time.Second,
	}
}
