package poll

import (
	"fmt"
	"html"
	"strings"

	"sticks-bot/internal/domain"
)

// Render формирует HTML-текст опроса с текущими голосами.
func Render(p domain.Poll, participants []string) string {
	groups, pending := Tally(p, participants)

	var b strings.Builder
	b.WriteString("🕐 <b>Во сколько играем?</b>\n")
	fmt.Fprintf(&b, "Опрос создал(а) %s\n\n", html.EscapeString(p.Creator))

	if len(groups) == 0 {
		b.WriteString("Голосов пока нет.\n")
	}
	for _, g := range groups {
		escaped := make([]string, len(g.Names))
		for i, n := range g.Names {
			escaped[i] = html.EscapeString(n)
		}
		fmt.Fprintf(&b, "<b>%s</b> (%d): %s\n", g.Time, len(g.Names), strings.Join(escaped, ", "))
	}

	if len(pending) > 0 {
		escaped := make([]string, len(pending))
		for i, n := range pending {
			escaped[i] = html.EscapeString(n)
		}
		fmt.Fprintf(&b, "\n⏳ Ещё не проголосовали: %s\n", strings.Join(escaped, ", "))
	}
	b.WriteString("\nЧтобы проголосовать, напишите время, например 19:30")
	return b.String()
}
