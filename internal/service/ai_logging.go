package service

import (
	"strings"
	"unicode/utf8"

	"github.com/zolffix/internal/logger"
)

const maxAILogSnippetRunes = 1024

// logAIExchange 以 debug 级别输出请求与响应的关键信息，方便排查模型行为。
func logAIExchange(kind, phase, content string) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		logger.Debug("ai exchange", "kind", kind, "phase", phase, "content", "<empty>")
		return
	}

	runeCount := utf8.RuneCountInString(trimmed)
	snippet := trimmed
	if runeCount > maxAILogSnippetRunes {
		snippet = string([]rune(trimmed)[:maxAILogSnippetRunes]) + "…(truncated)"
	}
	logger.Debug("ai exchange", "kind", kind, "phase", phase, "runes", runeCount, "content", snippet)
}
