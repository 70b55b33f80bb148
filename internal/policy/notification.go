package policy

import "github.com/futsalhub/platform/internal/domain"

// NotificationKindFor maps a ledger event to its push template. Only the
// allow-listed types notify; everything else returns false. m is the match
// state after the event was written.
func NotificationKindFor(t domain.MatchEventType, m *domain.Match) (domain.NotificationKind, bool) {
	switch t {
	case domain.EventGoal:
		return domain.NotifyGoal, true
	case domain.EventRedCard:
		return domain.NotifyRedCard, true
	case domain.EventPenalty:
		return domain.NotifyPenalty, true
	case domain.EventStartHalf:
		if m.Status == domain.MatchLive && m.SecondHalfStartedAt == nil {
			return domain.NotifyMatchStart, true
		}
		return domain.NotifyHalfStart, true
	case domain.EventEndHalf:
		return domain.NotifyHalfEnd, true
	case domain.EventEndMatch:
		return domain.NotifyMatchEnd, true
	}
	return "", false
}
