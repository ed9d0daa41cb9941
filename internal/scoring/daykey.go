package scoring

import (
	"errors"
	"fmt"
	"time"
)

// DayLayout is the textual form of every day key.
const DayLayout = "2006-01-02"

// FinalizationDelay is how long after 00:00 UTC of a day key the last local
// midnight on Earth (UTC-12) passes.
const FinalizationDelay = 36 * time.Hour

// Offsets outside this window do not exist on Earth (UTC-12 .. UTC+14).
const (
	minOffsetMinutes = -12 * 60
	maxOffsetMinutes = 14 * 60
)

var ErrInvalidDayKey = errors.New("invalid day key input")

type Policy string

const (
	PolicyLocalDate      Policy = "local_date"
	PolicyUTCDate        Policy = "utc_date"
	PolicyUTC12Finalized Policy = "utc12_finalized"
)

// DayKeyInputs is the wall-clock context captured when a result is submitted.
// TimezoneOffsetMinutes is minutes east of UTC (UTC+9 is 540).
type DayKeyInputs struct {
	SubmittedAt           time.Time
	RawLocalDate          string
	TimezoneOffsetMinutes int
}

// LocalDate returns the submitter's calendar date. A missing raw date is
// derived from SubmittedAt shifted by the offset.
func (in DayKeyInputs) LocalDate() (string, error) {
	if in.TimezoneOffsetMinutes < minOffsetMinutes || in.TimezoneOffsetMinutes > maxOffsetMinutes {
		return "", fmt.Errorf("%w: timezone offset %d out of range", ErrInvalidDayKey, in.TimezoneOffsetMinutes)
	}
	if in.RawLocalDate == "" {
		if in.SubmittedAt.IsZero() {
			return "", fmt.Errorf("%w: neither local date nor submission time given", ErrInvalidDayKey)
		}
		shifted := in.SubmittedAt.UTC().Add(time.Duration(in.TimezoneOffsetMinutes) * time.Minute)
		return shifted.Format(DayLayout), nil
	}
	if _, err := time.Parse(DayLayout, in.RawLocalDate); err != nil {
		return "", fmt.Errorf("%w: local date %q: %v", ErrInvalidDayKey, in.RawLocalDate, err)
	}
	return in.RawLocalDate, nil
}

// DayStatus reports whether a day's winners may be shown yet.
type DayStatus struct {
	DayKey      string     `json:"day_key"`
	Pending     bool       `json:"pending"`
	FinalizesAt *time.Time `json:"finalizes_at"`
}

// Resolver maps submissions to competition day keys under one policy.
// The zero value uses the local-date policy.
type Resolver struct {
	policy Policy
}

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyLocalDate, PolicyUTCDate, PolicyUTC12Finalized:
		return p, nil
	case "":
		return PolicyLocalDate, nil
	default:
		return "", fmt.Errorf("unknown day key policy %q", s)
	}
}

func NewResolver(policy Policy) (Resolver, error) {
	p, err := ParsePolicy(string(policy))
	if err != nil {
		return Resolver{}, err
	}
	return Resolver{policy: p}, nil
}

func (r Resolver) Policy() Policy {
	if r.policy == "" {
		return PolicyLocalDate
	}
	return r.policy
}

// DayKey computes the key stored with a result at write time. It is never
// recomputed afterwards, so a policy change only affects new results.
func (r Resolver) DayKey(in DayKeyInputs) (string, error) {
	switch r.Policy() {
	case PolicyUTCDate, PolicyUTC12Finalized:
		if in.SubmittedAt.IsZero() {
			return "", fmt.Errorf("%w: submission time required", ErrInvalidDayKey)
		}
		return in.SubmittedAt.UTC().Format(DayLayout), nil
	default:
		return in.LocalDate()
	}
}

// Status reports PENDING/FINALIZED for a day key at now. Only the
// utc12_finalized policy ever reports a pending day.
func (r Resolver) Status(dayKey string, now time.Time) (DayStatus, error) {
	day, err := time.ParseInLocation(DayLayout, dayKey, time.UTC)
	if err != nil {
		return DayStatus{}, fmt.Errorf("%w: %q", ErrInvalidDayKey, dayKey)
	}
	status := DayStatus{DayKey: dayKey}
	if r.Policy() != PolicyUTC12Finalized {
		return status, nil
	}
	finalizesAt := day.Add(FinalizationDelay)
	status.FinalizesAt = &finalizesAt
	status.Pending = now.Before(finalizesAt)
	return status, nil
}

// Final reports whether winners for dayKey may be computed at now.
// Unparseable keys are treated as pending under the finalized policy.
func (r Resolver) Final(dayKey string, now time.Time) bool {
	if r.Policy() != PolicyUTC12Finalized {
		return true
	}
	status, err := r.Status(dayKey, now)
	if err != nil {
		return false
	}
	return !status.Pending
}
