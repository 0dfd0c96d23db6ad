package stats

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"sticks-bot/internal/domain"
)

// В таблице под списком участников записаны правила. Такие строки не считаются участниками.
var (
	numberedRow  = regexp.MustCompile(`^\d+\.`)
	ruleKeywords = []string{
		"правила",
		"палку получает",
		"при появлении",
		"расчётное время",
		"при спорных",
		"если из за",
		"оспорить",
	}
)

// Filter оставляет только строки участников и сортирует их по убыванию палок.
// Порядок участников с одинаковым количеством сохраняется.
func Filter(snapshot domain.Snapshot) []domain.Record {
	out := make([]domain.Record, 0, len(snapshot))
	for _, r := range snapshot {
		if isParticipant(r.Name) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

func isParticipant(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return false
	}
	if numberedRow.MatchString(name) {
		return false
	}
	for _, kw := range ruleKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

func medal(index, count int) string {
	switch index {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	}
	if count > 0 {
		return "😐"
	}
	return "😇"
}

// FormatStats формирует HTML-сообщение со статистикой. Ожидает результат Filter.
func FormatStats(records []domain.Record) string {
	if len(records) == 0 {
		return NoData
	}
	var b strings.Builder
	b.WriteString("📊 <b>Статистика по палочникам</b>\n\n")

	total := 0
	for i, r := range records {
		total += r.Count
		fmt.Fprintf(&b, "%s <b>%s</b>: %d палок\n", medal(i, r.Count), html.EscapeString(r.Name), r.Count)
	}
	avg := float64(total) / float64(len(records))

	b.WriteString("\n📈 <b>Общая статистика:</b>\n")
	fmt.Fprintf(&b, "👥 Всего участников: %d\n", len(records))
	fmt.Fprintf(&b, "🧮 Всего палок: %d\n", total)
	fmt.Fprintf(&b, "📊 Среднее количество палок: %.2f\n", avg)
	b.WriteString("\nДля просмотра правил используйте команду /rules")
	return b.String()
}
