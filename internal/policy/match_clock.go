package policy

import (
	"math"
	"time"

	"github.com/futsalhub/platform/internal/domain"
)

// Fixed display minutes for the stopped phases.
const (
	HalftimeMinute          = 45
	SecondHalfBaseMinute    = 46
	ExtraTimeFirstBase      = 91
	ExtraTimeHalftimeMinute = 105
	ExtraTimeSecondBase     = 106
	PenaltiesMinute         = 120
)

// CurrentMinute derives the display minute from the match's status and anchor
// timestamps. It never mutates m and never reads the stored minute while a
// half is running, except as the extra-time base fallback for rows written
// before the extra-time anchor existed.
func CurrentMinute(m *domain.Match, now time.Time) int {
	switch m.Status {
	case domain.MatchLive:
		if m.SecondHalfStartedAt != nil {
			return max(SecondHalfBaseMinute, SecondHalfBaseMinute+minutesSince(*m.SecondHalfStartedAt, now))
		}
		if m.LiveStartedAt != nil {
			return max(1, 1+minutesSince(*m.LiveStartedAt, now))
		}
		return 1
	case domain.MatchExtraTime:
		base := m.ExtraTimeBase
		if base == 0 {
			base = m.CurrentMinute
		}
		anchor := m.UpdatedAt
		if m.ExtraTimeStartedAt != nil {
			anchor = *m.ExtraTimeStartedAt
		}
		return max(base, base+minutesSince(anchor, now))
	case domain.MatchHalftime:
		return HalftimeMinute
	case domain.MatchExtraTimeHalftime:
		return ExtraTimeHalftimeMinute
	case domain.MatchPenalties:
		return PenaltiesMinute
	case domain.MatchScheduled:
		return 1
	default:
		return m.CurrentMinute
	}
}

func minutesSince(anchor, now time.Time) int {
	return int(math.Floor(now.Sub(anchor).Seconds() / 60))
}

// IsRunning reports whether the clock advances in this status.
func IsRunning(s domain.MatchStatus) bool {
	return s == domain.MatchLive || s == domain.MatchExtraTime
}
