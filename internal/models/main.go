// Package models defines the core data structures for glucose readings
// and the trend directions reported by Dexcom Share.
package models

import (
	"errors"
	"fmt"
)

// Direction is the trend code reported by Dexcom Share for a reading.
type Direction int

const (
	// NoDirection means the sensor reported no trend.
	NoDirection Direction = iota
	// DoubleUp is a rapid rise.
	DoubleUp
	// SingleUp is a rise.
	SingleUp
	// FortyFiveUp is a slow rise.
	FortyFiveUp
	// Flat is a steady value.
	Flat
	// FortyFiveDown is a slow fall.
	FortyFiveDown
	// SingleDown is a fall.
	SingleDown
	// DoubleDown is a rapid fall.
	DoubleDown
	// NotComputable means the sensor could not compute a trend.
	NotComputable
	// RateOutOfRange means the rate of change is outside the sensor range.
	RateOutOfRange
)

var directionLabels = [...]string{
	NoDirection:    "nodir",
	DoubleUp:       "DoubleUp",
	SingleUp:       "SingleUp",
	FortyFiveUp:    "FortyFiveUp",
	Flat:           "Flat",
	FortyFiveDown:  "FortyFiveDown",
	SingleDown:     "SingleDown",
	DoubleDown:     "DoubleDown",
	NotComputable:  "NOT COMPUTABLE",
	RateOutOfRange: "RATE OUT OF RANGE",
}

// Valid reports whether d is one of the ten codes Dexcom Share defines.
func (d Direction) Valid() bool {
	return d >= NoDirection && d <= RateOutOfRange
}

// String returns the human-readable label of the direction.
func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionLabels[d]
}

// ParseDirection returns the direction for a label produced by String.
func ParseDirection(label string) (Direction, error) {
	for code, l := range directionLabels {
		if l == label {
			return Direction(code), nil
		}
	}
	return 0, fmt.Errorf("unknown direction label %q", label)
}

// Reading is a single decoded glucose measurement.
type Reading struct {
	// BG is the glucose value in mg/dL.
	BG int `json:"bg"`
	// Trend is the numeric direction code.
	Trend Direction `json:"trend"`
	// TrendEnglish is the label of Trend.
	TrendEnglish string `json:"trend_english"`
	// LastReadingTime is the reading timestamp in seconds since the epoch.
	LastReadingTime int64 `json:"last_reading_time"`
	// ReadingLag is the number of seconds between fetch time and LastReadingTime.
	ReadingLag int64 `json:"reading_lag"`
}

// StoredReading is a reading persisted by the monitor together with the poll that produced it.
type StoredReading struct {
	// ID is the unique identifier of the stored row.
	ID string `json:"id"`
	// PollID identifies the poll cycle that fetched the reading.
	PollID string `json:"poll_id"`
	Reading
}

// ErrNotFound is returned by stores that hold no reading yet.
var ErrNotFound = errors.New("reading not found")
