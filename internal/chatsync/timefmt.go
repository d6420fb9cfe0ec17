package chatsync

import (
	"fmt"
	"strconv"
	"time"
)

// FormatRelative подпись времени последнего сообщения в списке комнат
func FormatRelative(t, now time.Time) string {
	d := now.Sub(t)

	minutes := int(d / time.Minute)
	if minutes < 1 {
		return "Vừa xong"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d phút", minutes)
	}

	hours := int(d / time.Hour)
	if hours < 24 {
		return fmt.Sprintf("%d giờ", hours)
	}

	days := int(d / (24 * time.Hour))
	if days < 7 {
		return fmt.Sprintf("%d ngày", days)
	}

	// Как toLocaleDateString("vi-VN")
	return t.Local().Format("2/1/2006")
}

// UnreadBadge текст счётчика непрочитанных; ограничение только визуальное
func UnreadBadge(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > 99:
		return "99+"
	default:
		return strconv.Itoa(n)
	}
}
