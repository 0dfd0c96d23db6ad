package sheets

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"sticks-bot/internal/domain"
)

var errEmptySheet = errors.New("данные не найдены в таблице")

type layout struct {
	name  int
	count int
}

func findLayout(rows [][]interface{}, nameHeader, countHeader string) (layout, error) {
	if len(rows) == 0 {
		return layout{}, errEmptySheet
	}
	l := layout{name: -1, count: -1}
	for i, cell := range rows[0] {
		switch cellString(cell) {
		case nameHeader:
			if l.name < 0 {
				l.name = i
			}
		case countHeader:
			if l.count < 0 {
				l.count = i
			}
		}
	}
	if l.name < 0 || l.count < 0 {
		return layout{}, fmt.Errorf("не найдены обязательные столбцы %q и/или %q", nameHeader, countHeader)
	}
	return l, nil
}

// findRow возвращает индекс строки участника в rows или -1.
func (l layout) findRow(rows [][]interface{}, name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return -1
	}
	for i := 1; i < len(rows); i++ {
		if strings.ToLower(cellString(at(rows[i], l.name))) == want {
			return i
		}
	}
	return -1
}

func (l layout) record(row []interface{}) domain.Record {
	return domain.Record{
		Name:  cellString(at(row, l.name)),
		Count: parseCount(at(row, l.count)),
	}
}

func parseSnapshot(rows [][]interface{}, nameHeader, countHeader string) (domain.Snapshot, error) {
	l, err := findLayout(rows, nameHeader, countHeader)
	if err != nil {
		return nil, err
	}
	snap := make(domain.Snapshot, 0, len(rows)-1)
	for _, row := range rows[1:] {
		r := l.record(row)
		if r.Name == "" {
			continue
		}
		snap = append(snap, r)
	}
	return snap, nil
}

func at(row []interface{}, i int) interface{} {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// parseCount приводит ячейку к количеству палок. Пустые, нечисловые и
// отрицательные значения считаются нулём.
func parseCount(v interface{}) int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return int(f)
}

// cellRef строит адрес ячейки для строки rowIndex (с нуля) и столбца col
// относительно начала диапазона, например "Лист1!B5".
func cellRef(readRange string, col, rowIndex int) (string, error) {
	sheet, cells := "", readRange
	if i := strings.LastIndex(readRange, "!"); i >= 0 {
		sheet, cells = readRange[:i+1], readRange[i+1:]
	}
	startCol, startRow := splitCell(strings.SplitN(cells, ":", 2)[0])
	if startCol == "" {
		return "", fmt.Errorf("некорректный диапазон %q", readRange)
	}
	return fmt.Sprintf("%s%s%d", sheet, columnName(columnIndex(startCol)+col), startRow+rowIndex), nil
}

// splitCell делит "B3" на "B" и 3. Без номера строки диапазон начинается с первой строки.
func splitCell(ref string) (string, int) {
	i := 0
	for i < len(ref) && ((ref[i] >= 'A' && ref[i] <= 'Z') || (ref[i] >= 'a' && ref[i] <= 'z')) {
		i++
	}
	letters := strings.ToUpper(ref[:i])
	row, err := strconv.Atoi(ref[i:])
	if err != nil || row < 1 {
		row = 1
	}
	return letters, row
}

func columnIndex(letters string) int {
	n := 0
	for _, r := range letters {
		n = n*26 + int(r-'A'+1)
	}
	return n - 1
}

func columnName(index int) string {
	var b []byte
	for index++; index > 0; index = (index - 1) / 26 {
		b = append([]byte{byte('A' + (index-1)%26)}, b...)
	}
	return string(b)
}
