package policy

import (
	"testing"
	"time"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNotificationKindFor(t *testing.T) {
	firstHalf := &domain.Match{Status: domain.MatchLive, LiveStartedAt: ptr(kickoff)}
	secondHalf := &domain.Match{Status: domain.MatchLive, LiveStartedAt: ptr(kickoff), SecondHalfStartedAt: ptr(at(60 * time.Minute))}
	extra := &domain.Match{Status: domain.MatchExtraTime}

	tests := []struct {
		name   string
		typ    domain.MatchEventType
		m      *domain.Match
		want   domain.NotificationKind
		notify bool
	}{
		{"goal", domain.EventGoal, firstHalf, domain.NotifyGoal, true},
		{"red card", domain.EventRedCard, firstHalf, domain.NotifyRedCard, true},
		{"penalty", domain.EventPenalty, firstHalf, domain.NotifyPenalty, true},
		{"kickoff", domain.EventStartHalf, firstHalf, domain.NotifyMatchStart, true},
		{"second half start", domain.EventStartHalf, secondHalf, domain.NotifyHalfStart, true},
		{"extra time start", domain.EventStartHalf, extra, domain.NotifyHalfStart, true},
		{"half end", domain.EventEndHalf, firstHalf, domain.NotifyHalfEnd, true},
		{"match end", domain.EventEndMatch, firstHalf, domain.NotifyMatchEnd, true},
		{"foul skipped", domain.EventFoul, firstHalf, "", false},
		{"yellow skipped", domain.EventYellowCard, firstHalf, "", false},
		{"substitution skipped", domain.EventSubstitution, firstHalf, "", false},
		{"corner skipped", domain.EventCorner, firstHalf, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := NotificationKindFor(tt.typ, tt.m)
			assert.Equal(t, tt.notify, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}
