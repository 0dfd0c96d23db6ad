package poll

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sticks-bot/internal/domain"
)

func TestTally(t *testing.T) {
	p := domain.Poll{Votes: map[string]string{
		"Вова": "20:00",
		"Аня":  "19:30",
		"Боря": "20:00",
	}}

	groups, pending := Tally(p, []string{"Аня", "Боря", "Вова", "Гена"})
	require.Len(t, groups, 2)
	assert.Equal(t, TimeGroup{Time: "19:30", Names: []string{"Аня"}}, groups[0])
	assert.Equal(t, TimeGroup{Time: "20:00", Names: []string{"Боря", "Вова"}}, groups[1])
	assert.Equal(t, []string{"Гена"}, pending)
}

func TestRender(t *testing.T) {
	p := domain.Poll{Creator: "Аня", Votes: map[string]string{"Боря": "21:00", "Аня": "17:00"}}

	text := Render(p, []string{"Аня", "Боря", "Вова"})
	early := strings.Index(text, "<b>17:00</b> (1): Аня")
	late := strings.Index(text, "<b>21:00</b> (1): Боря")
	require.NotEqual(t, -1, early)
	require.NotEqual(t, -1, late)
	assert.Less(t, early, late)
	assert.Contains(t, text, "Ещё не проголосовали: Вова")
}

func TestRenderEmpty(t *testing.T) {
	text := Render(domain.Poll{Creator: "<Аня>"}, nil)
	assert.Contains(t, text, "Голосов пока нет")
	assert.Contains(t, text, "&lt;Аня&gt;")
	assert.NotContains(t, text, "не проголосовали")
}
