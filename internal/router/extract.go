package router

import (
	"fmt"
	"strings"
)

// textKeys — ключи, в которых бэкенды обычно прячут текст, в порядке приоритета.
var textKeys = []string{"choices", "message", "content", "text", "response", "answer"}

// ExtractText безопасно извлекает текст из разнородных ответов бэкендов:
// строка, вложенный объект или список таких значений сводятся к одной строке.
func ExtractText(payload any) string {
	switch v := payload.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		for _, key := range textKeys {
			if inner, ok := v[key]; ok {
				if extracted := ExtractText(inner); extracted != "" {
					return extracted
				}
			}
		}
		// Стандартных ключей нет — берем первую достаточно длинную строку.
		for _, value := range v {
			if s, ok := value.(string); ok {
				if trimmed := strings.TrimSpace(s); len([]rune(trimmed)) > 10 {
					return trimmed
				}
			}
		}
		return ""
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if extracted := ExtractText(item); extracted != "" {
				parts = append(parts, extracted)
			}
		}
		return strings.Join(parts, " ")
	default:
		s := strings.TrimSpace(fmt.Sprintf("%v", v))
		if len([]rune(s)) > 10 {
			return s
		}
		return ""
	}
}
