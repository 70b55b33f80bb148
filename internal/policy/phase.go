package policy

import (
	"time"

	"github.com/futsalhub/platform/internal/domain"
)

// PhaseAction names an operator-driven status transition.
type PhaseAction string

const (
	ActionStart                    PhaseAction = "start"
	ActionEndHalf                  PhaseAction = "end_half"
	ActionStartSecondHalf          PhaseAction = "start_second_half"
	ActionStartExtraTime           PhaseAction = "start_extra_time"
	ActionEndExtraTimeFirstHalf    PhaseAction = "end_extra_time_first_half"
	ActionStartExtraTimeSecondHalf PhaseAction = "start_extra_time_second_half"
	ActionStartPenalties           PhaseAction = "start_penalties"
	ActionFinish                   PhaseAction = "finish"
)

// PhaseActions lists every action in the order a full match would take them.
var PhaseActions = []PhaseAction{
	ActionStart, ActionEndHalf, ActionStartSecondHalf, ActionStartExtraTime,
	ActionEndExtraTimeFirstHalf, ActionStartExtraTimeSecondHalf, ActionStartPenalties, ActionFinish,
}

// Transition is the planned result of a phase action.
type Transition struct {
	Next      domain.Match
	From      domain.MatchStatus
	Lifecycle domain.MatchEventType
	// Minute is stamped on the lifecycle event: the running clock when a
	// period ends, the new period's opening minute otherwise.
	Minute int
}

// PlanTransition validates action against m's status and returns the updated
// row with the minute anchors the clock reads. A transition whose target
// status already holds is rejected, so anchors are written once per period.
func PlanTransition(m domain.Match, action PhaseAction, now time.Time) (Transition, error) {
	next := m
	var lifecycle domain.MatchEventType
	secondHalf := m.SecondHalfStartedAt != nil

	switch action {
	case ActionStart:
		if m.Status != domain.MatchScheduled {
			return Transition{}, domain.ErrIllegalTransition(m.Status, string(action))
		}
		next.Status = domain.MatchLive
		next.LiveStartedAt = &now
		next.SecondHalfStartedAt = nil
		next.ExtraTimeBase = 0
		next.ExtraTimeStartedAt = nil
		next.CurrentMinute = 1
		lifecycle = domain.EventStartHalf
	case ActionEndHalf:
		if m.Status != domain.MatchLive {
			return Transition{}, domain.ErrIllegalTransition(m.Status, string(action))
		}
		next.Status = domain.MatchHalftime
		next.CurrentMinute = HalftimeMinute
		lifecycle = domain.EventEndHalf
	case ActionStartSecondHalf:
		if m.Status != domain.MatchHalftime || secondHalf {
			return Transition{}, domain.ErrIllegalTransition(m.Status, string(action))
		}
		next.Status = domain.MatchLive
		next.SecondHalfStartedAt = &now
		next.CurrentMinute = SecondHalfBaseMinute
		lifecycle = domain.EventStartHalf
	case ActionStartExtraTime:
		if !secondHalf || (m.Status != domain.MatchHalftime && m.Status != domain.MatchLive) {
			return Transition{}, domain.ErrIllegalTransition(m.Status, string(action))
		}
		next.Status = domain.MatchExtraTime
		next.ExtraTimeBase = ExtraTimeFirstBase
		next.ExtraTimeStartedAt = &now
		next.CurrentMinute = ExtraTimeFirstBase
		lifecycle = domain.EventStartHalf
	case ActionEndExtraTimeFirstHalf:
		if m.Status != domain.MatchExtraTime || m.ExtraTimeBase == ExtraTimeSecondBase {
			return Transition{}, domain.ErrIllegalTransition(m.Status, string(action))
		}
		next.Status = domain.MatchExtraTimeHalftime
		next.CurrentMinute = ExtraTimeHalftimeMinute
		lifecycle = domain.EventEndHalf
	case ActionStartExtraTimeSecondHalf:
		if m.Status != domain.MatchExtraTimeHalftime {
			return Transition{}, domain.ErrIllegalTransition(m.Status, string(action))
		}
		next.Status = domain.MatchExtraTime
		next.ExtraTimeBase = ExtraTimeSecondBase
		next.ExtraTimeStartedAt = &now
		next.CurrentMinute = ExtraTimeSecondBase
		lifecycle = domain.EventStartHalf
	case ActionStartPenalties:
		if m.Status != domain.MatchExtraTime || m.ExtraTimeBase != ExtraTimeSecondBase {
			return Transition{}, domain.ErrIllegalTransition(m.Status, string(action))
		}
		next.Status = domain.MatchPenalties
		next.CurrentMinute = PenaltiesMinute
		lifecycle = domain.EventEndHalf
	case ActionFinish:
		if !m.Status.IsActive() {
			return Transition{}, domain.ErrIllegalTransition(m.Status, string(action))
		}
		next.Status = domain.MatchFinished
		next.CurrentMinute = CurrentMinute(&m, now)
		lifecycle = domain.EventEndMatch
	default:
		return Transition{}, domain.ErrValidation("unknown phase action: " + string(action))
	}

	next.UpdatedAt = now
	minute := CurrentMinute(&next, now)
	if IsRunning(m.Status) {
		minute = CurrentMinute(&m, now)
	}
	return Transition{Next: next, From: m.Status, Lifecycle: lifecycle, Minute: minute}, nil
}
