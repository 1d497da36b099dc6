package models

import (
	"fmt"
	"time"
)

// Signal event kinds.
const (
	EventBrokeAbove    = "broke_above"
	EventBrokeBelow    = "broke_below"
	EventNewDayHigh    = "new_day_high"
	EventNewDayLow     = "new_day_low"
	EventLargeMoveUp   = "large_move_up"
	EventLargeMoveDown = "large_move_down"
)

// Signal levels.
const (
	LevelPriorDayHigh  = "prior_day_high"
	LevelPriorDayLow   = "prior_day_low"
	LevelPriorDayClose = "prior_day_close"
)

// Signal is one objective intraday event. Immutable once appended.
type Signal struct {
	Timestamp  time.Time `json:"ts"`
	Asset      string    `json:"asset"`
	Event      string    `json:"event"`
	Level      string    `json:"level,omitempty"`
	LevelValue *float64  `json:"level_value,omitempty"`
	Price      float64   `json:"price"`
	Pct        *float64  `json:"pct,omitempty"`
}

// Key identifies the (asset, event, level) triple used for de-duplication.
func (s Signal) Key() string {
	return fmt.Sprintf("%s|%s|%s", s.Asset, s.Event, s.Level)
}
