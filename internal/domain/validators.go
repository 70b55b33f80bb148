package domain

import (
	"fmt"
	"regexp"
)

var (
	languageRegex  = regexp.MustCompile(`^[a-z]{2}$`)
	pushTokenRegex = regexp.MustCompile(`^[A-Za-z0-9:_\-\[\]]{16,512}$`)
)

// ValidateLanguage checks an ISO 639-1 language code.
func ValidateLanguage(lang string) error {
	if !languageRegex.MatchString(lang) {
		return fmt.Errorf("invalid language code: %s", lang)
	}
	return nil
}

// ValidatePushToken checks a device token from the mobile client.
func ValidatePushToken(token string) error {
	if token == "" {
		return fmt.Errorf("push token is required")
	}
	if !pushTokenRegex.MatchString(token) {
		return fmt.Errorf("invalid push token format")
	}
	return nil
}

// ValidateEventInput checks the generic event payload. Lifecycle types are
// written by phase transitions, and substitutions need lineup context.
func ValidateEventInput(in EventInput) error {
	if !in.Type.Valid() {
		return fmt.Errorf("unknown event type: %s", in.Type)
	}
	if in.Type.IsLifecycle() {
		return fmt.Errorf("%s is recorded by phase transitions", in.Type)
	}
	if in.Type == EventSubstitution {
		return fmt.Errorf("substitution requires lineup context")
	}
	if in.Type == EventGoal && in.TeamID == nil {
		return fmt.Errorf("goal requires team_id")
	}
	if p := in.Position; p != nil && (p.X < 0 || p.X > 100 || p.Y < 0 || p.Y > 100) {
		return fmt.Errorf("position must be within 0-100")
	}
	return nil
}
