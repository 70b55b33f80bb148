package notify

import (
	"strconv"
	"strings"

	"github.com/futsalhub/platform/internal/domain"
)

// DefaultLanguage is used when a recipient has no preference or one we do
// not translate.
const DefaultLanguage = "en"

type template struct {
	title string
	body  string
}

// Placeholders: {home} {away} {hs} {as} {minute} {team} {player}.
// {player} expands to "Name, " or nothing.
var templates = map[string]map[domain.NotificationKind]template{
	"en": {
		domain.NotifyMatchStart: {"Kick-off!", "{home} vs {away} has started"},
		domain.NotifyHalfStart:  {"Back under way", "{home} {hs}-{as} {away}"},
		domain.NotifyHalfEnd:    {"Half-time", "{home} {hs}-{as} {away}"},
		domain.NotifyMatchEnd:   {"Full-time", "{home} {hs}-{as} {away}"},
		domain.NotifyGoal:       {"GOAL! {team}", "{player}{minute}' {home} {hs}-{as} {away}"},
		domain.NotifyRedCard:    {"Red card: {team}", "{player}{minute}' {home} vs {away}"},
		domain.NotifyPenalty:    {"Penalty for {team}", "{minute}' {home} {hs}-{as} {away}"},
		domain.NotifyPreMatch:   {"Starting soon", "{home} vs {away} is about to kick off"},
	},
	"es": {
		domain.NotifyMatchStart: {"¡Comienza el partido!", "{home} vs {away} ha comenzado"},
		domain.NotifyHalfStart:  {"Se reanuda el juego", "{home} {hs}-{as} {away}"},
		domain.NotifyHalfEnd:    {"Medio tiempo", "{home} {hs}-{as} {away}"},
		domain.NotifyMatchEnd:   {"Final del partido", "{home} {hs}-{as} {away}"},
		domain.NotifyGoal:       {"¡GOL! {team}", "{player}{minute}' {home} {hs}-{as} {away}"},
		domain.NotifyRedCard:    {"Tarjeta roja: {team}", "{player}{minute}' {home} vs {away}"},
		domain.NotifyPenalty:    {"Penal para {team}", "{minute}' {home} {hs}-{as} {away}"},
		domain.NotifyPreMatch:   {"Empieza pronto", "{home} vs {away} está por comenzar"},
	},
	"pt": {
		domain.NotifyMatchStart: {"Começou!", "{home} x {away} começou"},
		domain.NotifyHalfStart:  {"Bola rolando", "{home} {hs}-{as} {away}"},
		domain.NotifyHalfEnd:    {"Intervalo", "{home} {hs}-{as} {away}"},
		domain.NotifyMatchEnd:   {"Fim de jogo", "{home} {hs}-{as} {away}"},
		domain.NotifyGoal:       {"GOL! {team}", "{player}{minute}' {home} {hs}-{as} {away}"},
		domain.NotifyRedCard:    {"Cartão vermelho: {team}", "{player}{minute}' {home} x {away}"},
		domain.NotifyPenalty:    {"Pênalti para {team}", "{minute}' {home} {hs}-{as} {away}"},
		domain.NotifyPreMatch:   {"Começa em breve", "{home} x {away} vai começar"},
	},
}

// Languages returns the translated languages.
func Languages() []string { return []string{"en", "es", "pt"} }

// Render formats the title and body for kind in lang, falling back to
// DefaultLanguage.
func Render(lang string, kind domain.NotificationKind, occ Occurrence) (title, body string) {
	set, ok := templates[lang]
	if !ok {
		set = templates[DefaultLanguage]
	}
	tpl, ok := set[kind]
	if !ok {
		tpl = templates[DefaultLanguage][kind]
	}

	player := ""
	if occ.Player != "" {
		player = occ.Player + ", "
	}
	r := strings.NewReplacer(
		"{home}", occ.HomeTeam,
		"{away}", occ.AwayTeam,
		"{hs}", strconv.Itoa(occ.Match.HomeScore),
		"{as}", strconv.Itoa(occ.Match.AwayScore),
		"{minute}", strconv.Itoa(occ.Minute),
		"{team}", occ.Team,
		"{player}", player,
	)
	return r.Replace(tpl.title), r.Replace(tpl.body)
}
