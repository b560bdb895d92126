package maintenance

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// MonthKey — ключ месяца "YYYY-MM" по UTC, независимо от зоны t.
func MonthKey(t time.Time) string {
	return t.UTC().Format(monthLayout)
}

// PreviousMonthKey вычитает календарный месяц (не 30 дней),
// корректно переходя через границу года: "2025-01" -> "2024-12".
func PreviousMonthKey(month string) (string, error) {
	t, err := time.Parse(monthLayout, month)
	if err != nil {
		return "", fmt.Errorf("maintenance: bad month key %q: %w", month, err)
	}
	// Парсинг даёт первое число месяца, AddDate от него безопасен.
	return t.AddDate(0, -1, 0).Format(monthLayout), nil
}
