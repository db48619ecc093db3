package domain

import (
	"fmt"
	"math"
	"strings"
)

type TravelMode string

const (
	TravelModeWalking TravelMode = "walking"
	TravelModeDriving TravelMode = "driving"

	DefaultTravelMode = TravelModeDriving
)

// ParseTravelMode accepts "walking" or "driving" (case-insensitive).
// An empty string yields the default mode.
func ParseTravelMode(s string) (TravelMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultTravelMode, nil
	case string(TravelModeWalking):
		return TravelModeWalking, nil
	case string(TravelModeDriving):
		return TravelModeDriving, nil
	default:
		return "", fmt.Errorf("parse travel mode: unknown mode %q", s)
	}
}

func (m TravelMode) String() string { return string(m) }

// Distance and human-readable travel time from an origin to one destination.
type TravelEstimate struct {
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
	DurationText    string `json:"duration_text"`
}

// DurationText renders seconds the way map providers display travel time,
// e.g. "1 min", "12 mins", "1 hour 5 mins", "2 days 3 hours".
// Anything below a minute rounds up to "1 min".
func DurationText(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}

	minutes := int(math.Round(float64(seconds) / 60))
	if minutes < 1 {
		minutes = 1
	}

	days := minutes / (24 * 60)
	hours := (minutes % (24 * 60)) / 60
	mins := minutes % 60

	if days > 0 {
		if hours == 0 {
			return plural(days, "day")
		}
		return plural(days, "day") + " " + plural(hours, "hour")
	}
	if hours > 0 {
		if mins == 0 {
			return plural(hours, "hour")
		}
		return plural(hours, "hour") + " " + plural(mins, "min")
	}
	return plural(mins, "min")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
