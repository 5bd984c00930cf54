package logs

import "strings"

// SeverityCounts value object
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Unknown  int `json:"unknown"`
	Total    int `json:"total"`
}

// CountSeverities tallies the stored severities. Anything outside the usual
// vocabulary counts as unknown.
func CountSeverities(records []*LogRecord) SeverityCounts {
	var c SeverityCounts
	for _, r := range records {
		switch strings.ToLower(strings.TrimSpace(r.Severity)) {
		case "critical":
			c.Critical++
		case "high":
			c.High++
		case "medium":
			c.Medium++
		case "low", "info", "informational":
			c.Low++
		default:
			c.Unknown++
		}
		c.Total++
	}
	return c
}
