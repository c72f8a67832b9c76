package performance

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field aliases accepted when decoding interval records, in priority order.
var (
	energyKeys     = []string{"eac_kwh", "Eac_kWh", "eac", "energy", "production"}
	timestampKeys  = []string{"ts", "time", "datetime"}
	statusKeys     = []string{"status", "InverterStatus", "Inverter status", "Status"}
	capacityKeys   = []string{"capacity_kwp", "capacity_kWp", "capacity", "kWp"}
	irradianceKeys = []string{"irr", "GHI", "GTI"}
)

// UnmarshalJSON accepts the field spellings used by monitoring exports.
// Numbers may be JSON numbers or numeric strings; unparseable values count as 0.
func (r *IntervalRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("performance: decode record: %w", err)
	}
	*r = IntervalRecord{}

	if key, ok := firstKey(raw, energyKeys); ok {
		r.EnergyKWh = rawNumber(raw[key])
	}
	if key, ok := firstKey(raw, timestampKeys); ok {
		r.Timestamp = rawString(raw[key])
	}
	if key, ok := firstKey(raw, statusKeys); ok {
		r.Status = rawString(raw[key])
	}
	if key, ok := firstKey(raw, capacityKeys); ok {
		v := rawNumber(raw[key])
		r.CapacityKWp = &v
	}
	if header, ok := raw["irr_header"]; ok {
		r.IrradianceHeader = rawString(header)
	}
	if key, ok := firstKey(raw, irradianceKeys); ok {
		v := rawNumber(raw[key])
		r.Irradiance = &v
		if r.IrradianceHeader == "" {
			r.IrradianceHeader = key
		}
	}
	return nil
}

func firstKey(raw map[string]json.RawMessage, keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && string(v) != "null" {
			return k, true
		}
	}
	return "", false
}

func rawString(msg json.RawMessage) string {
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s
	}
	return strings.Trim(string(msg), `"`)
}

func rawNumber(msg json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(msg, &f); err == nil {
		return f
	}
	return parseNumber(rawString(msg))
}

// parseNumber reads a cell as a float, treating blanks and junk as 0.
func parseNumber(s string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}
