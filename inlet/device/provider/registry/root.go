// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package registry is a device provider backed by a relational
// database. Unknown exporters are registered on first sight.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"flowmill/common/reporter"
	"flowmill/inlet/device/provider"
)

// Device is a device record in the registry.
type Device struct {
	ID          int64  `gorm:"primaryKey"`
	IP          string `gorm:"uniqueIndex"`
	FlowType    string
	FlowVersion int
	FirstSeen   time.Time
	LastSeen    time.Time
}

// Provider represents the registry provider.
type Provider struct {
	r      *reporter.Reporter
	config Configuration
	db     *gorm.DB
}

// New creates a new registry provider from configuration.
func (configuration Configuration) New(r *reporter.Reporter) (provider.Provider, error) {
	var db *gorm.DB
	var err error
	switch configuration.Driver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(configuration.DSN), &gorm.Config{
			Logger: &logger{r},
		})
	default:
		return nil, fmt.Errorf("%q is not a supported driver", configuration.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	if err := db.AutoMigrate(&Device{}); err != nil {
		return nil, fmt.Errorf("cannot migrate database: %w", err)
	}
	return &Provider{
		r:      r,
		config: configuration,
		db:     db,
	}, nil
}

// Resolve returns the handle of the device, registering it when
// unknown.
func (p *Provider) Resolve(ctx context.Context, query provider.Query) (int64, error) {
	now := time.Now()
	device := Device{
		IP:          query.ExporterIP.Unmap().String(),
		FlowType:    query.FlowType,
		FlowVersion: query.FlowVersion,
		FirstSeen:   now,
		LastSeen:    now,
	}
	result := p.db.WithContext(ctx).
		Where(Device{IP: device.IP}).
		FirstOrCreate(&device)
	if result.Error != nil {
		return -1, result.Error
	}
	if err := p.db.WithContext(ctx).
		Model(&Device{}).
		Where("id = ?", device.ID).
		Update("last_seen", now).Error; err != nil {
		// The device exists, a failed refresh is not fatal.
		p.r.Debug().Err(err).Str("ip", device.IP).Msg("cannot refresh last seen")
	}
	return device.ID, nil
}
