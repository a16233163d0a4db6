package share

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/atinyakov/DexWatch/internal/models"
)

// epochPattern matches the millisecond epoch inside values like "/Date(1700000000000)/".
var epochPattern = regexp.MustCompile(`\d+`)

type shareEntry struct {
	ST    *string `json:"ST"`
	Trend *int    `json:"Trend"`
	Value *int    `json:"Value"`
}

// ParseReadings decodes the first entry of a latest-glucose payload.
// An empty list yields a *ParseError wrapping ErrNoReading; a malformed
// payload yields a *ParseError wrapping the cause. now is used for the lag.
func ParseReadings(body []byte, now time.Time) (models.Reading, error) {
	var entries []shareEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return models.Reading{}, &ParseError{Body: body, Err: err}
	}
	if len(entries) == 0 {
		return models.Reading{}, &ParseError{Body: body, Err: ErrNoReading}
	}

	e := entries[0]
	switch {
	case e.ST == nil:
		return models.Reading{}, &ParseError{Body: body, Err: errors.New("missing ST field")}
	case e.Trend == nil:
		return models.Reading{}, &ParseError{Body: body, Err: errors.New("missing Trend field")}
	case e.Value == nil:
		return models.Reading{}, &ParseError{Body: body, Err: errors.New("missing Value field")}
	}

	digits := epochPattern.FindString(*e.ST)
	if digits == "" {
		return models.Reading{}, &ParseError{Body: body, Err: fmt.Errorf("no epoch in ST %q", *e.ST)}
	}
	ms, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return models.Reading{}, &ParseError{Body: body, Err: fmt.Errorf("ST epoch: %w", err)}
	}

	trend := models.Direction(*e.Trend)
	if !trend.Valid() {
		return models.Reading{}, &ParseError{Body: body, Err: fmt.Errorf("trend %d out of range", *e.Trend)}
	}

	last := ms / 1000
	return models.Reading{
		BG:              *e.Value,
		Trend:           trend,
		TrendEnglish:    trend.String(),
		LastReadingTime: last,
		ReadingLag:      now.Unix() - last,
	}, nil
}
