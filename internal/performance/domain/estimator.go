package performance

import (
	"log"
	"regexp"
	"strings"
)

const slotsPerHour = 12

var (
	wm2HeaderRe = regexp.MustCompile(`(?i)W\s*/?\s*(m\^?2|m²|㎡|m-2)`)
	irrHeaderRe = regexp.MustCompile(`irradiance|irr`)
	gridRe      = regexp.MustCompile(`grid\s*connected|\bnormal\b|\brunning\b`)
	gridNegRe   = regexp.MustCompile(`\b(not|non)\b|disconnect|off-?\s*grid`)
)

// gridSynonyms are status fragments some inverter firmwares report instead of
// the English grid connected text.
var gridSynonyms = []string{"grid-connected", "power limit", "kết nối lưới", "hòa lưới", "并网"}

// IntervalRecord is one 5-minute production slot.
type IntervalRecord struct {
	Timestamp        string   `json:"ts"`
	EnergyKWh        float64  `json:"eac_kwh"`
	Status           string   `json:"status,omitempty"`
	CapacityKWp      *float64 `json:"capacity_kwp,omitempty"`
	Irradiance       *float64 `json:"irr,omitempty"`
	IrradianceHeader string   `json:"irr_header,omitempty"`
}

// IrradianceRow is one row of an irradiance upload.
type IrradianceRow struct {
	Timestamp string   `json:"ts"`
	Values    []string `json:"values"`
}

// IrradianceTable is an uploaded irradiance series keyed by timestamp.
type IrradianceTable struct {
	Headers []string        `json:"headers"`
	Rows    []IrradianceRow `json:"rows"`
}

// Result is the RPR estimate with the totals it was derived from.
type Result struct {
	RPR              float64 `json:"rpr"`
	EnergyKWh        float64 `json:"eac_kwh"`
	IrradianceKWhM2  float64 `json:"eirr_kwh_m2"`
	CapacityKWp      float64 `json:"capacity_kwp"`
	Slots            int     `json:"slots"`
	GoodSlots        int     `json:"good_slots"`
	HourlySlots      float64 `json:"hourly_slots"`
	IrradianceColumn string  `json:"irradiance_column,omitempty"`
}

// Diagnostics is what an estimate reports to its observer.
type Diagnostics struct {
	Result
	UsedTable      bool
	ColumnIndex    int
	ExcludedSlots  int
	TableTimestamp int
}

// Observer receives diagnostics for each estimate.
type Observer interface {
	Observe(Diagnostics)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Diagnostics)

// Observe calls f.
func (f ObserverFunc) Observe(d Diagnostics) { f(d) }

// LogObserver writes diagnostics to a logger.
type LogObserver struct {
	Logger *log.Logger
}

// Observe logs one line per estimate.
func (o LogObserver) Observe(d Diagnostics) {
	logger := o.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("performance rpr: slots=%d good=%d excluded=%d hourly=%.2f eac=%.3f eirr=%.4f capacity=%.2f rpr=%.4f column=%q table=%v",
		d.Slots, d.GoodSlots, d.ExcludedSlots, d.HourlySlots, d.EnergyKWh, d.IrradianceKWhM2, d.CapacityKWp, d.RPR, d.IrradianceColumn, d.UsedTable)
}

// Estimator computes the real performance ratio of interval data.
type Estimator struct {
	observer Observer
}

// NewEstimator constructs an estimator; observer may be nil.
func NewEstimator(observer Observer) *Estimator {
	return &Estimator{observer: observer}
}

// PickIrradianceColumn chooses the irradiance column: GHI, then GTI, then any
// irradiance column. It returns -1 when none qualifies.
func PickIrradianceColumn(headers []string) (int, string) {
	lower := make([]string, len(headers))
	for i, h := range headers {
		lower[i] = strings.ToLower(h)
	}
	for _, match := range []func(string) bool{
		func(h string) bool { return strings.Contains(h, "ghi") },
		func(h string) bool { return strings.Contains(h, "gti") },
		irrHeaderRe.MatchString,
	} {
		for i, h := range lower {
			if match(h) {
				return i, headers[i]
			}
		}
	}
	return -1, ""
}

// NormalizeIrradiance converts a W/m² slot reading to kWh/m² over 5 minutes.
// Other units pass through.
func NormalizeIrradiance(value float64, header string) float64 {
	if wm2HeaderRe.MatchString(header) {
		return (value / 1000) * (5.0 / 60.0)
	}
	return value
}

// IsGridConnected reports whether a status admits the slot. Blank statuses count.
func IsGridConnected(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return true
	}
	// negated states such as "not running" or "grid disconnected"
	if gridNegRe.MatchString(s) {
		return false
	}
	if gridRe.MatchString(s) {
		return true
	}
	for _, syn := range gridSynonyms {
		if strings.Contains(s, syn) {
			return true
		}
	}
	return false
}

// Estimate sums energy and irradiance over grid connected slots. Irradiance
// comes from table when it has a value for the slot timestamp, otherwise from
// the record itself. Excluded slots contribute to neither sum.
func (e *Estimator) Estimate(records []IntervalRecord, table *IrradianceTable) Result {
	diag := Diagnostics{ColumnIndex: -1}
	byTimestamp := map[string]float64{}
	if table != nil && len(table.Headers) > 0 {
		idx, header := PickIrradianceColumn(table.Headers)
		diag.ColumnIndex = idx
		diag.IrradianceColumn = header
		diag.UsedTable = true
		for _, row := range table.Rows {
			var v float64
			if idx >= 0 && idx < len(row.Values) {
				v = NormalizeIrradiance(parseNumber(row.Values[idx]), header)
			}
			byTimestamp[strings.TrimSpace(row.Timestamp)] = v
		}
		diag.TableTimestamp = len(byTimestamp)
	}

	for _, rec := range records {
		diag.Slots++
		if !IsGridConnected(rec.Status) {
			diag.ExcludedSlots++
			continue
		}
		var irr float64
		if v, ok := byTimestamp[strings.TrimSpace(rec.Timestamp)]; ok {
			irr = v
		} else if rec.Irradiance != nil {
			header := rec.IrradianceHeader
			if header == "" {
				header = "irr"
			}
			irr = NormalizeIrradiance(*rec.Irradiance, header)
		}
		diag.EnergyKWh += rec.EnergyKWh
		diag.IrradianceKWhM2 += irr
		if rec.CapacityKWp != nil && *rec.CapacityKWp > diag.CapacityKWp {
			diag.CapacityKWp = *rec.CapacityKWp
		}
		diag.GoodSlots++
	}

	diag.HourlySlots = float64(diag.GoodSlots) / slotsPerHour
	if diag.IrradianceKWhM2 > 0 {
		diag.RPR = diag.EnergyKWh / diag.IrradianceKWhM2
	}
	if e != nil && e.observer != nil {
		e.observer.Observe(diag)
	}
	return diag.Result
}
