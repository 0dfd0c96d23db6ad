package changes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"sticks-bot/internal/domain"
)

func TestFormat(t *testing.T) {
	msg := Format([]domain.Change{
		{Kind: domain.ChangeModified, Name: "A", OldCount: 5, NewCount: 7},
		{Kind: domain.ChangeModified, Name: "B", OldCount: 3, NewCount: 1},
		{Kind: domain.ChangeAdded, Name: "C", NewCount: 0},
		{Kind: domain.ChangeRemoved, Name: "<D>", OldCount: 4},
	})

	assert.Contains(t, msg, "📈 <b>A</b>: 5 → 7 палок (+2)")
	assert.Contains(t, msg, "📉 <b>B</b>: 3 → 1 палок (-2)")
	assert.Contains(t, msg, "➕ Добавлен участник <b>C</b> с 0 палками")
	assert.Contains(t, msg, "➖ Удалён участник <b>&lt;D&gt;</b> (было 4 палок)")
	assert.Less(t, strings.Index(msg, "<b>A</b>"), strings.Index(msg, "&lt;D&gt;"))
}
