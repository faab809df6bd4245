package service

import (
	"log"
	"strings"
	"unicode/utf8"
)

// 日志中保留的提示词与响应片段上限，避免长报告刷屏
const aiLogSnippetRunes = 800

// logAIExchange 记录一次模型交互的提示词或响应，kind 区分调用来源
func logAIExchange(kind, phase, content string) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		log.Printf("[AI %s] %s 内容为空", kind, phase)
		return
	}
	log.Printf("[AI %s] %s: %s", kind, phase, truncateRunes(trimmed, aiLogSnippetRunes))
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "...(已截断)"
}
