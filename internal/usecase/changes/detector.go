package changes

import "sticks-bot/internal/domain"

// index строит отображение имя→количество, сохраняя порядок первого появления имени.
// При повторяющихся именах побеждает последнее значение.
func index(s domain.Snapshot) ([]string, map[string]int) {
	counts := make(map[string]int, len(s))
	for _, r := range s {
		counts[r.Name] = r.Count
	}
	return s.Names(), counts
}

// Detect сравнивает два снимка таблицы. Сначала идут Added/Modified в порядке имён
// нового снимка, затем Removed в порядке имён старого.
func Detect(prev, next domain.Snapshot) []domain.Change {
	prevOrder, prevCounts := index(prev)
	nextOrder, nextCounts := index(next)

	var changes []domain.Change
	for _, name := range nextOrder {
		newCount := nextCounts[name]
		oldCount, ok := prevCounts[name]
		switch {
		case !ok:
			changes = append(changes, domain.Change{Kind: domain.ChangeAdded, Name: name, NewCount: newCount})
		case oldCount != newCount:
			changes = append(changes, domain.Change{Kind: domain.ChangeModified, Name: name, OldCount: oldCount, NewCount: newCount})
		}
	}
	for _, name := range prevOrder {
		if _, ok := nextCounts[name]; !ok {
			changes = append(changes, domain.Change{Kind: domain.ChangeRemoved, Name: name, OldCount: prevCounts[name]})
		}
	}
	return changes
}

// Duplicates возвращает имена, встречающиеся в снимке больше одного раза.
func Duplicates(s domain.Snapshot) []string {
	seen := make(map[string]int, len(s))
	var dups []string
	for _, r := range s {
		seen[r.Name]++
		if seen[r.Name] == 2 {
			dups = append(dups, r.Name)
		}
	}
	return dups
}
