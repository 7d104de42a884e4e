/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

// Schedule is a stored schedule row. Blockers are its recurring weekly windows.
type Schedule struct {
	ID       int       `gorm:"primaryKey" json:"id"`
	Name     string    `gorm:"type:text;not null" json:"name"`
	Active   bool      `gorm:"not null" json:"active"`
	Blockers []Blocker `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE" json:"blockers,omitempty"`
}

// TableName keeps the table name used by existing timegate databases.
func (Schedule) TableName() string { return "schedules" }

// Blocker is a stored window row. StartTime is kept as "HH:MM:SS" text and
// Duration in whole seconds.
type Blocker struct {
	ID         int    `gorm:"primaryKey" json:"id"`
	ScheduleID int    `gorm:"index;not null" json:"schedule_id"`
	Weekday    int    `gorm:"not null" json:"weekday"`
	Duration   int    `gorm:"not null" json:"duration"`
	StartTime  string `gorm:"type:text;not null" json:"start_time"`
}

func (Blocker) TableName() string { return "blockers" }
