package main

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var numberPrinter = message.NewPrinter(language.English)

// formatLux renders an illuminance value with thousands separators.
func formatLux(value float64) string {
	return numberPrinter.Sprintf("%.1f", value)
}

// formatCount renders an integer with thousands separators.
func formatCount(value int) string {
	return numberPrinter.Sprintf("%d", value)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
