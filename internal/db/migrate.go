/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/friendsincode/timegate/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or upgrades the schedule tables.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Schedule{},
		&models.Blocker{},
	); err != nil {
		return err
	}

	if err := dropOrphanBlockers(database); err != nil {
		return err
	}
	return nil
}

// dropOrphanBlockers removes windows whose schedule row is gone. Databases
// written before the foreign key existed can still hold them.
func dropOrphanBlockers(database *gorm.DB) error {
	res := database.Exec("DELETE FROM blockers WHERE schedule_id NOT IN (SELECT id FROM schedules)")
	if res.Error != nil {
		return fmt.Errorf("drop orphan blockers: %w", res.Error)
	}
	return nil
}
