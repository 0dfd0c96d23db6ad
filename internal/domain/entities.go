package domain

import "time"

// Record описывает строку таблицы: участника и количество его палок.
type Record struct {
	Name  string
	Count int
}

// Snapshot — упорядоченный набор записей таблицы на момент чтения.
type Snapshot []Record

// Names возвращает имена в порядке первого появления.
func (s Snapshot) Names() []string {
	seen := make(map[string]struct{}, len(s))
	names := make([]string, 0, len(s))
	for _, r := range s {
		if _, ok := seen[r.Name]; ok {
			continue
		}
		seen[r.Name] = struct{}{}
		names = append(names, r.Name)
	}
	return names
}

// ChangeKind определяет вид изменения между снимками.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// Change описывает одно изменение записи. OldCount не используется для Added,
// NewCount — для Removed.
type Change struct {
	Kind     ChangeKind
	Name     string
	OldCount int
	NewCount int
}

// Delta возвращает разницу количества палок для Modified.
func (c Change) Delta() int {
	return c.NewCount - c.OldCount
}

// Identity описывает автора входящего сообщения.
type Identity struct {
	UserID   int64
	Username string
}

// Poll хранит состояние опроса о времени игры в чате.
type Poll struct {
	ID        string
	ChatID    int64
	Creator   string
	CreatedAt time.Time
	// MessageID равен нулю, пока Telegram не вернул идентификатор сообщения с опросом.
	MessageID int
	Votes     map[string]string
}

// Clone возвращает копию опроса, не разделяющую карту голосов.
func (p *Poll) Clone() Poll {
	votes := make(map[string]string, len(p.Votes))
	for name, at := range p.Votes {
		votes[name] = at
	}
	cp := *p
	cp.Votes = votes
	return cp
}
