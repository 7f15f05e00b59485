package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"autocheckout/internal/models"
)

const (
	dateLayout      = "2006-01-02"
	timeLayout      = "15:04:05"
	legacyRunLayout = "2006-01-02 15:04:05"
)

// Defaults applied when a key is missing or unparsable.
var (
	DefaultEnabled    = true
	DefaultTargetTime = TimeOfDay{Hour: 10, Minute: 0}
)

// ErrInvalidTargetTime is returned for a target time that is not HH:MM.
var ErrInvalidTargetTime = errors.New("target time must be HH:MM")

// TimeOfDay is a wall-clock minute in the engine's time zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant of t on the calendar day of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// ParseTimeOfDay accepts "HH:MM" and, for rows written by older tools, "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTargetTime, s)
}

// Settings is the typed view of the engine's system_settings keys.
type Settings struct {
	Enabled    bool
	TargetTime TimeOfDay
	LastRun    time.Time // zero when never run
	LastRunRaw string
}

// ParseSettings converts the raw key/value bag. It never fails: missing or
// invalid values fall back to the defaults and are logged.
func ParseSettings(raw map[string]string, loc *time.Location, logger *zap.Logger) Settings {
	s := Settings{Enabled: DefaultEnabled, TargetTime: DefaultTargetTime}

	if v, ok := raw[models.SettingAutoCheckoutEnabled]; ok {
		enabled, err := parseFlag(v)
		if err != nil {
			logger.Warn("Invalid auto checkout enabled flag, using default",
				zap.String("value", v), zap.Bool("default", DefaultEnabled))
		} else {
			s.Enabled = enabled
		}
	}

	if v, ok := raw[models.SettingAutoCheckoutTime]; ok && strings.TrimSpace(v) != "" {
		t, err := ParseTimeOfDay(v)
		if err != nil {
			logger.Warn("Invalid auto checkout time, using default",
				zap.String("value", v), zap.String("default", DefaultTargetTime.String()))
		} else {
			s.TargetTime = t
		}
	}

	if v := strings.TrimSpace(raw[models.SettingLastAutoCheckoutRun]); v != "" {
		s.LastRunRaw = v
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			s.LastRun = t.In(loc)
		} else if t, err := time.ParseInLocation(legacyRunLayout, v, loc); err == nil {
			s.LastRun = t
		} else {
			logger.Debug("Unparsable last run marker", zap.String("value", v))
		}
	}

	return s
}

func parseFlag(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true, nil
	case "0", "false", "off", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid flag %q", v)
}

func formatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// SettingsUpdate carries operator changes; nil/empty fields are left alone.
type SettingsUpdate struct {
	Enabled    *bool
	TargetTime string
}

// SaveSettings validates and writes an update through the store.
func SaveSettings(ctx context.Context, store SettingsStore, u SettingsUpdate) error {
	if u.TargetTime != "" {
		t, err := ParseTimeOfDay(u.TargetTime)
		if err != nil {
			return err
		}
		if err := store.Set(ctx, models.SettingAutoCheckoutTime, t.String()); err != nil {
			return fmt.Errorf("save %s: %w", models.SettingAutoCheckoutTime, err)
		}
	}
	if u.Enabled != nil {
		if err := store.Set(ctx, models.SettingAutoCheckoutEnabled, formatFlag(*u.Enabled)); err != nil {
			return fmt.Errorf("save %s: %w", models.SettingAutoCheckoutEnabled, err)
		}
	}
	return nil
}

// Window reports whether now falls in [target, target+grace) and the date
// that window belongs to. A window that crosses midnight keeps the date of
// the day it opened on. now must already be in the engine's time zone.
func Window(now time.Time, target TimeOfDay, grace time.Duration) (string, bool) {
	for _, offset := range []int{0, -1} {
		start := target.On(now.AddDate(0, 0, offset))
		if !now.Before(start) && now.Before(start.Add(grace)) {
			return start.Format(dateLayout), true
		}
	}
	return now.Format(dateLayout), false
}

// NextRun returns the next window opening after now. doneToday skips today's.
func NextRun(now time.Time, target TimeOfDay, doneToday bool) time.Time {
	next := target.On(now)
	if doneToday || !now.Before(next) {
		next = target.On(now.AddDate(0, 0, 1))
	}
	return next
}
