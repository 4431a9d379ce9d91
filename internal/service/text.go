package service

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// titleCase trims s and capitalises each word. Casers keep state, so one is
// built per call.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

func normalizeSpotNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func normalizeVehicleNumber(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}
