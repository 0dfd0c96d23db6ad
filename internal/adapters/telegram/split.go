package telegram

import (
	"strings"
	"unicode"
)

const (
	messageLimit = 4096
	// entityMaxLen ограничивает длину HTML-сущности вида &quot; при поиске точки разреза.
	entityMaxLen = 10
)

type htmlTag struct {
	name string
	open string
}

// SplitMessage режет текст на части, которые укладываются в лимит, предпочитая переводы строк.
// Для parseMode "HTML" разрез не попадает внутрь тега или сущности, а теги, открытые
// на границе, закрываются в конце части и открываются заново в начале следующей.
func SplitMessage(text, parseMode string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	if len(runes) <= messageLimit {
		return []string{trimmed}
	}

	markup := strings.EqualFold(parseMode, "HTML")
	var parts []string
	var open []htmlTag
	for start := 0; start < len(runes); {
		prefix := openingTags(open)
		end, stack := cutPoint(runes, start, open, messageLimit-runeLen(prefix), markup)

		body := strings.Trim(string(runes[start:end]), "\n")
		if body != "" {
			parts = append(parts, prefix+body+closingTags(stack))
		}

		open = stack
		start = end
		for start < len(runes) && runes[start] == '\n' {
			start++
		}
	}

	if len(parts) == 0 {
		return []string{trimmed}
	}
	return parts
}

// cutPoint возвращает конец очередной части и теги, открытые в этой точке.
func cutPoint(runes []rune, start int, open []htmlTag, budget int, markup bool) (int, []htmlTag) {
	stack := append([]htmlTag(nil), open...)
	lineEnd, anyEnd := -1, -1
	var lineStack, anyStack []htmlTag

	inTag, inEntity := false, false
	tagStart, entityLen := 0, 0
	for i := start; i <= len(runes); i++ {
		if !inTag && !inEntity && i > start {
			if i-start+runeLen(closingTags(stack)) > budget {
				break
			}
			anyEnd, anyStack = i, append([]htmlTag(nil), stack...)
			if runes[i-1] == '\n' || i == len(runes) {
				lineEnd, lineStack = i, anyStack
			}
		}
		if i == len(runes) {
			break
		}

		r := runes[i]
		switch {
		case !markup:
		case inTag:
			if r == '>' {
				inTag = false
				stack = applyTag(stack, string(runes[tagStart:i+1]))
			}
		case inEntity:
			entityLen++
			if r == ';' || unicode.IsSpace(r) || entityLen >= entityMaxLen {
				inEntity = false
			}
		case r == '<':
			inTag, tagStart = true, i
		case r == '&':
			inEntity, entityLen = true, 0
		}
	}

	switch {
	case lineEnd > start:
		return lineEnd, lineStack
	case anyEnd > start:
		return anyEnd, anyStack
	}
	end := start + budget
	if budget < 1 {
		end = start + 1
	}
	if end > len(runes) {
		end = len(runes)
	}
	return end, open
}

func applyTag(stack []htmlTag, tag string) []htmlTag {
	inner := strings.TrimSuffix(strings.TrimPrefix(tag, "<"), ">")
	if strings.HasSuffix(inner, "/") {
		return stack
	}
	if strings.HasPrefix(inner, "/") {
		name := tagName(inner[1:])
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].name == name {
				return append(stack[:i:i], stack[i+1:]...)
			}
		}
		return stack
	}
	return append(stack, htmlTag{name: tagName(inner), open: tag})
}

func tagName(inner string) string {
	if i := strings.IndexFunc(inner, unicode.IsSpace); i >= 0 {
		inner = inner[:i]
	}
	return strings.ToLower(inner)
}

func openingTags(stack []htmlTag) string {
	var b strings.Builder
	for _, t := range stack {
		b.WriteString(t.open)
	}
	return b.String()
}

func closingTags(stack []htmlTag) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteString("</" + stack[i].name + ">")
	}
	return b.String()
}

func runeLen(s string) int {
	return len([]rune(s))
}
