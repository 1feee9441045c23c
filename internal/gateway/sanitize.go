// Package gateway реализует доставку сообщений пользователю через Telegram Bot API.
package gateway

import (
	"strings"
)

const (
	// telegramMaxMessage — жесткий лимит Telegram на длину сообщения.
	telegramMaxMessage = 4096
	// telegramSafeLimit — безопасный лимит с запасом на разметку.
	telegramSafeLimit = 3900
)

// escapeMarkdown экранирует символы, которые Telegram трактует как разметку
// в режиме Markdown, кроме * и _, которые используются в текстах интерпретаций.
func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(text)
}

// splitIntoChunks разбивает длинный текст на части, укладывающиеся в лимит
// Telegram. Сначала режет по пустым строкам, затем по переводам строк,
// в крайнем случае по рунам.
func splitIntoChunks(text string, limit int) []string {
	if limit <= 0 {
		limit = telegramSafeLimit
	}
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
		}
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		for _, piece := range splitLong(paragraph, limit) {
			runeLen := len([]rune(piece))
			if len([]rune(current.String()))+runeLen+2 > limit {
				flush()
			}
			current.WriteString(piece)
			current.WriteString("\n\n")
		}
	}
	flush()
	return chunks
}

// splitLong режет одиночный абзац, не влезающий в лимит: сперва по строкам,
// потом принудительно по рунам.
func splitLong(paragraph string, limit int) []string {
	if len([]rune(paragraph)) <= limit {
		return []string{paragraph}
	}

	var pieces []string
	var current strings.Builder
	for _, line := range strings.Split(paragraph, "\n") {
		runes := []rune(line)
		for len(runes) > limit {
			pieces = append(pieces, string(runes[:limit]))
			runes = runes[limit:]
		}
		line = string(runes)
		if len([]rune(current.String()))+len([]rune(line))+1 > limit {
			if current.Len() > 0 {
				pieces = append(pieces, strings.TrimRight(current.String(), "\n"))
				current.Reset()
			}
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		pieces = append(pieces, strings.TrimRight(current.String(), "\n"))
	}
	return pieces
}
