package production

import (
	"encoding/json"
	"sort"
)

// Sample is one admitted log row after normalization.
type Sample struct {
	Day      string
	DeviceID string
	Value    float64
}

// DeviceDay keys a bracket.
type DeviceDay struct {
	Day      string
	DeviceID string
}

// Bracket holds the extremes of a cumulative counter for one device and day.
type Bracket struct {
	Min float64
	Max float64
}

// Gain is the non-negative spread of the bracket.
func (b Bracket) Gain() float64 {
	if b.Max-b.Min < 0 {
		return 0
	}
	return b.Max - b.Min
}

// BracketSet accumulates brackets for one ingestion run. It is not safe for
// concurrent use; rows are folded one at a time.
type BracketSet map[DeviceDay]Bracket

// Fold widens the bracket of the sample's device and day.
// A counter reset inside a day is not compensated: the bracket spans both
// regimes and undercounts whatever was produced before the reset.
func (s BracketSet) Fold(sample Sample) {
	key := DeviceDay{Day: sample.Day, DeviceID: sample.DeviceID}
	b, ok := s[key]
	if !ok {
		s[key] = Bracket{Min: sample.Value, Max: sample.Value}
		return
	}
	if sample.Value < b.Min {
		b.Min = sample.Value
	}
	if sample.Value > b.Max {
		b.Max = sample.Value
	}
	s[key] = b
}

// DailyAggregate is the site production per day in kWh.
type DailyAggregate map[string]float64

// Aggregate sums bracket gains per day. Devices are summed in sorted order so the
// floating point result does not depend on map iteration. Zero-gain devices are
// included, so a day with only idle inverters still reports 0.
func Aggregate(set BracketSet) DailyAggregate {
	keys := make([]DeviceDay, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Day != keys[j].Day {
			return keys[i].Day < keys[j].Day
		}
		return keys[i].DeviceID < keys[j].DeviceID
	})

	daily := make(DailyAggregate)
	for _, k := range keys {
		daily[k.Day] += set[k].Gain()
	}
	return daily
}

// Days returns the aggregate days in chronological order.
func (d DailyAggregate) Days() []string {
	days := make([]string, 0, len(d))
	for day := range d {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

// Total sums the aggregate in chronological order.
func (d DailyAggregate) Total() float64 {
	var total float64
	for _, day := range d.Days() {
		total += d[day]
	}
	return total
}

// ParseResult is the outcome of ingesting one file.
type ParseResult struct {
	Success              bool               `json:"success"`
	Message              string             `json:"message,omitempty"`
	Source               string             `json:"source"`
	SiteName             *string            `json:"siteName"`
	DailyProduction      map[string]float64 `json:"dailyProduction"`
	DailyProductionTotal float64            `json:"dailyProductionTotal"`
	FirstDay             *string            `json:"firstDay"`
	LastDay              *string            `json:"lastDay"`
	ParsedRecordsCount   int                `json:"parsedRecordsCount"`
}

// Failure builds an unsuccessful result.
func Failure(message string) ParseResult {
	return ParseResult{Success: false, Message: message}
}

// BuildResult derives the success result from a finished aggregate. source may
// be a format tag; it is reported through SourceLabel.
func BuildResult(source, siteName string, daily DailyAggregate, parsed int) ParseResult {
	days := daily.Days()
	result := ParseResult{
		Success:              true,
		Source:               SourceLabel(source),
		DailyProduction:      map[string]float64(daily),
		DailyProductionTotal: daily.Total(),
		ParsedRecordsCount:   parsed,
	}
	if result.DailyProduction == nil {
		result.DailyProduction = map[string]float64{}
	}
	if siteName != "" {
		result.SiteName = &siteName
	}
	if len(days) > 0 {
		first, last := days[0], days[len(days)-1]
		result.FirstDay = &first
		result.LastDay = &last
	}
	return result
}

// MarshalJSON emits only success and message for failures.
func (r ParseResult) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}{Success: false, Message: r.Message})
	}
	type plain ParseResult
	return json.Marshal(plain(r))
}

// Days returns the sorted production days of a successful result.
func (r ParseResult) Days() []string {
	return DailyAggregate(r.DailyProduction).Days()
}
