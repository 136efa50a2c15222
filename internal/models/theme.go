package models

import "strings"

type ThemeColors struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Success    string `json:"success"`
	Error      string `json:"error"`
	Background string `json:"background"`
	Surface    string `json:"surface"`
	Text       string `json:"text"`
}

type Theme struct {
	Name   string      `json:"name"`
	Colors ThemeColors `json:"colors"`
}

// OceanTheme is the only built-in theme.
var OceanTheme = Theme{
	Name: "Ocean Professional",
	Colors: ThemeColors{
		Primary:    "#2563EB",
		Secondary:  "#F59E0B",
		Success:    "#F59E0B",
		Error:      "#EF4444",
		Background: "#f9fafb",
		Surface:    "#ffffff",
		Text:       "#111827",
	},
}

// ARGB converts a "#RRGGBB" colour to the opaque "FFRRGGBB" form used in slide files.
// Anything that is not six hex digits falls back to fallback.
func ARGB(hex, fallback string) string {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) != 6 {
		return fallback
	}
	for _, r := range h {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return fallback
		}
	}
	return "FF" + strings.ToUpper(h)
}
