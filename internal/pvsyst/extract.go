// Package pvsyst pulls site facts out of the text of a PVSyst simulation report.
package pvsyst

import (
	"regexp"
	"strings"
)

var (
	gpsRe      = regexp.MustCompile(`(-?\d{1,3}\.\d{2,})[°,]?\s*(\d{1,3}\.\d{2,})`)
	moduleRe   = regexp.MustCompile(`\b(JAM|LR|TSM|JKM|CS)[0-9A-Za-z\-/]+\b`)
	inverterRe = regexp.MustCompile(`\b(SUN2000|SG|STP|PVS)-[A-Za-z0-9\-]+`)
	codRe      = regexp.MustCompile(`\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}`)
)

// Info holds the fields found in a report. Missing fields are empty.
type Info struct {
	GPS      string `json:"gps"`
	Module   string `json:"module"`
	Inverter string `json:"inverter"`
	COD      string `json:"cod"`
	RawText  string `json:"rawText,omitempty"`
}

// Extract collapses whitespace in text and takes the first match of each field.
func Extract(text string) Info {
	flat := strings.Join(strings.Fields(text), " ")
	info := Info{RawText: flat}
	if m := gpsRe.FindStringSubmatch(flat); m != nil {
		info.GPS = m[1] + ", " + m[2]
	}
	info.Module = moduleRe.FindString(flat)
	info.Inverter = inverterRe.FindString(flat)
	info.COD = codRe.FindString(flat)
	return info
}
