package changes

import (
	"fmt"
	"html"
	"strings"

	"sticks-bot/internal/domain"
)

// Format формирует HTML-сообщение об изменениях в таблице.
func Format(changes []domain.Change) string {
	var b strings.Builder
	b.WriteString("🔄 <b>Обновление данных в таблице:</b>\n\n")
	for _, c := range changes {
		name := html.EscapeString(c.Name)
		switch c.Kind {
		case domain.ChangeAdded:
			fmt.Fprintf(&b, "➕ Добавлен участник <b>%s</b> с %d палками\n", name, c.NewCount)
		case domain.ChangeRemoved:
			fmt.Fprintf(&b, "➖ Удалён участник <b>%s</b> (было %d палок)\n", name, c.OldCount)
		case domain.ChangeModified:
			diff := c.Delta()
			emoji := "🔄"
			sign := ""
			switch {
			case diff > 0:
				emoji = "📈"
				sign = "+"
			case diff < 0:
				emoji = "📉"
			}
			fmt.Fprintf(&b, "%s <b>%s</b>: %d → %d палок (%s%d)\n", emoji, name, c.OldCount, c.NewCount, sign, diff)
		}
	}
	b.WriteString("\nИспользуйте /stats для просмотра текущей статистики или /chart для просмотра диаграммы")
	return b.String()
}
