/*
Copyright 2025 GridRank Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"fmt"
	"time"
)

// ScheduleMode says how a keyword is scheduled. It is a closed two-variant
// enum: a keyword either inherits its grid's schedule or carries its own.
// There is deliberately no third "unset" state.
type ScheduleMode string

const (
	ScheduleModeInherit ScheduleMode = "INHERIT"
	ScheduleModeCustom  ScheduleMode = "CUSTOM"
)

// Valid reports whether the mode is one of the two known variants.
func (m ScheduleMode) Valid() bool {
	return m == ScheduleModeInherit || m == ScheduleModeCustom
}

// ParseScheduleMode maps a stored mode string to the enum. An empty string is
// treated as Inherit so that legacy rows without a recorded mode land in the
// grid-level tier; anything else is rejected.
func ParseScheduleMode(s string) (ScheduleMode, error) {
	switch ScheduleMode(s) {
	case ScheduleModeInherit, "":
		return ScheduleModeInherit, nil
	case ScheduleModeCustom:
		return ScheduleModeCustom, nil
	}
	return "", fmt.Errorf("unknown schedule mode %q", s)
}

// GeoPoint is one coordinate in a scan grid.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Recurrence describes how often a grid or custom keyword is scanned.
// Frequency is one of "daily", "weekly" or "monthly"; Day and Hour pin the
// occurrence inside the period. The next-due computation itself lives in a
// database trigger that observes last_scheduled_run_at writes.
type Recurrence struct {
	Frequency string `json:"frequency"`
	Day       int    `json:"day"`
	Hour      int    `json:"hour"`
}

// Configured reports whether a recurrence has been set up at all. Grids
// without a recurrence are never due.
func (r Recurrence) Configured() bool {
	return r.Frequency != ""
}

// Grid is an account-scoped scan configuration: a geographic center, the grid
// points to probe around it, and a group-level schedule covering all of its
// inherit-mode keywords in one run.
type Grid struct {
	ID                 int64                  `json:"-"`
	GridID             string                 `json:"grid_id"`
	AccountID          string                 `json:"account_id"`
	Name               string                 `json:"name"`
	CenterLat          float64                `json:"center_lat"`
	CenterLng          float64                `json:"center_lng"`
	Points             []GeoPoint             `json:"points"`
	Enabled            bool                   `json:"enabled"`
	Recurrence         Recurrence             `json:"recurrence"`
	NextScheduledAt    *time.Time             `json:"next_scheduled_at"`
	LastScheduledRunAt *time.Time             `json:"last_scheduled_run_at"`
	CreatedAt          time.Time              `json:"created_at"`
	MetaData           map[string]interface{} `json:"meta_data"`
}

// Keyword is a single tracked search term belonging to exactly one grid.
// In Inherit mode it is scanned as part of its grid's run; in Custom mode it
// is scheduled independently with its own recurrence fields.
type Keyword struct {
	ID                 int64                  `json:"-"`
	KeywordID          string                 `json:"keyword_id"`
	GridID             string                 `json:"grid_id"`
	AccountID          string                 `json:"account_id"`
	Phrase             string                 `json:"phrase"`
	Enabled            bool                   `json:"enabled"`
	ScheduleMode       ScheduleMode           `json:"schedule_mode"`
	Recurrence         Recurrence             `json:"recurrence"`
	NextScheduledAt    *time.Time             `json:"next_scheduled_at"`
	LastScheduledRunAt *time.Time             `json:"last_scheduled_run_at"`
	CreatedAt          time.Time              `json:"created_at"`
	MetaData           map[string]interface{} `json:"meta_data"`
}

// KeywordIDs extracts the ids of the given keywords, preserving order.
func KeywordIDs(keywords []*Keyword) []string {
	ids := make([]string, 0, len(keywords))
	for _, k := range keywords {
		ids = append(ids, k.KeywordID)
	}
	return ids
}
