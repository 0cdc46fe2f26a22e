package handler

import (
	"strings"

	ua "github.com/mileusna/useragent"
)

// describeClient 从 User-Agent 中提取浏览器、系统与设备类型，用于登录日志
func describeClient(userAgent string) (browser, os, device string) {
	if strings.TrimSpace(userAgent) == "" {
		return "unknown", "unknown", "desktop"
	}

	parsed := ua.Parse(userAgent)
	browser, os = parsed.Name, parsed.OS
	if browser == "" {
		browser = "unknown"
	}
	if os == "" {
		os = "unknown"
	}

	device = "desktop"
	switch {
	case parsed.Bot:
		device = "bot"
	case parsed.Tablet:
		device = "tablet"
	case parsed.Mobile:
		device = "mobile"
	}
	return browser, os, device
}
