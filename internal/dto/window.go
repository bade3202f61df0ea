package dto

import (
	"time"

	appErrors "github.com/noah-isme/youthhub-metrics-api/pkg/errors"
)

// ParseBounds parses optional RFC3339 window bounds. A bound that does not
// parse is an invalid time range; pairing and ordering are checked when the
// window is resolved.
func ParseBounds(start, end string) (*time.Time, *time.Time, error) {
	from, err := parseBound("start", start)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseBound("end", end)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseBound(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInvalidTimeRange, err, name+" must be an RFC3339 timestamp")
	}
	return &t, nil
}
