package gateway

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIntoChunks_ShortTextSingleChunk(t *testing.T) {
	chunks := splitIntoChunks("короткое сообщение", telegramSafeLimit)
	require.Len(t, chunks, 1)
	assert.Equal(t, "короткое сообщение", chunks[0])
}

func TestSplitIntoChunks_SplitsByParagraphs(t *testing.T) {
	paragraph := strings.Repeat("а", 2000)
	text := paragraph + "\n\n" + paragraph + "\n\n" + paragraph

	chunks := splitIntoChunks(text, telegramSafeLimit)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), telegramSafeLimit)
	}
}

func TestSplitIntoChunks_HardSplitsOversizedLine(t *testing.T) {
	text := strings.Repeat("я", 9000)

	chunks := splitIntoChunks(text, telegramSafeLimit)

	require.GreaterOrEqual(t, len(chunks), 3)
	total := 0
	for _, chunk := range chunks {
		runeLen := len([]rune(chunk))
		assert.LessOrEqual(t, runeLen, telegramSafeLimit)
		total += runeLen
	}
	assert.Equal(t, 9000, total, "при разбиении не теряется ни одной руны")
}

func TestEscapeMarkdown(t *testing.T) {
	escaped := escapeMarkdown("текст [со скобками] и `кодом`")
	assert.Equal(t, "текст \\[со скобками\\] и \\`кодом\\`", escaped)
}
