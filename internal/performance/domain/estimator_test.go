package performance

import (
	"bytes"
	"encoding/json"
	"log"
	"math"
	"strings"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func TestPickIrradianceColumn(t *testing.T) {
	cases := []struct {
		headers []string
		idx     int
	}{
		{headers: []string{"Time", "Irradiance (W/m2)", "GTI", "GHI (W/m2)"}, idx: 3},
		{headers: []string{"Time", "Irradiance", "gti kWh/m2"}, idx: 2},
		{headers: []string{"Time", "POA irr"}, idx: 1},
		{headers: []string{"Time", "Temp"}, idx: -1},
	}
	for _, tc := range cases {
		idx, header := PickIrradianceColumn(tc.headers)
		if idx != tc.idx {
			t.Fatalf("PickIrradianceColumn(%v) = %d, want %d", tc.headers, idx, tc.idx)
		}
		if idx >= 0 && header != tc.headers[idx] {
			t.Fatalf("unexpected header %q", header)
		}
	}
}

func TestNormalizeIrradiance(t *testing.T) {
	got := NormalizeIrradiance(600, "GHI (W/m2)")
	if math.Abs(got-0.05) > 1e-12 {
		t.Fatalf("expected 0.05 kWh/m2, got %v", got)
	}
	if got := NormalizeIrradiance(0.05, "GHI kWh/m2"); got != 0.05 {
		t.Fatalf("expected pass-through, got %v", got)
	}
	if got := NormalizeIrradiance(1200, "irradiance Wm2"); math.Abs(got-0.1) > 1e-12 {
		t.Fatalf("expected 0.1, got %v", got)
	}
	for _, header := range []string{"GHI (W/m²)", "GTI W/㎡", "Irradiance (W m-2)", "GHI W / m^2"} {
		if got := NormalizeIrradiance(600, header); math.Abs(got-0.05) > 1e-12 {
			t.Fatalf("%q: expected 0.05 kWh/m2, got %v", header, got)
		}
	}
}

func TestIsGridConnected(t *testing.T) {
	admitted := []string{"", "Grid Connected", "grid connected : power limit", "On-grid connected", "Normal", "RUNNING", "Hòa lưới", "并网", "Kết nối lưới"}
	for _, s := range admitted {
		if !IsGridConnected(s) {
			t.Fatalf("expected %q to be grid connected", s)
		}
	}
	rejected := []string{"Standby", "Shutdown", "Fault: grid overvoltage", "Grid disconnected", "Abnormal", "Not running", "Off-grid"}
	for _, s := range rejected {
		if IsGridConnected(s) {
			t.Fatalf("expected %q to be excluded", s)
		}
	}
}

func TestEstimateExcludesOfflineSlots(t *testing.T) {
	var seen []Diagnostics
	est := NewEstimator(ObserverFunc(func(d Diagnostics) { seen = append(seen, d) }))

	records := []IntervalRecord{
		{Timestamp: "2024-01-01 10:00", EnergyKWh: 40, Status: "Grid connected", CapacityKWp: ptr(100)},
		{Timestamp: "2024-01-01 10:05", EnergyKWh: 42, Status: "", CapacityKWp: ptr(120)},
		{Timestamp: "2024-01-01 10:10", EnergyKWh: 99, Status: "Shutdown", CapacityKWp: ptr(500)},
	}
	table := &IrradianceTable{
		Headers: []string{"Time", "GTI", "GHI (W/m2)"},
		Rows: []IrradianceRow{
			{Timestamp: "2024-01-01 10:00", Values: []string{"2024-01-01 10:00", "1", "600"}},
			{Timestamp: "2024-01-01 10:05", Values: []string{"2024-01-01 10:05", "1", "1200"}},
			{Timestamp: "2024-01-01 10:10", Values: []string{"2024-01-01 10:10", "1", "6000"}},
		},
	}
	res := est.Estimate(records, table)

	if res.EnergyKWh != 82 {
		t.Fatalf("expected 82 kWh, got %v", res.EnergyKWh)
	}
	if math.Abs(res.IrradianceKWhM2-0.15) > 1e-12 {
		t.Fatalf("expected 0.15 kWh/m2, got %v", res.IrradianceKWhM2)
	}
	if math.Abs(res.RPR-82/0.15) > 1e-9 {
		t.Fatalf("unexpected rpr %v", res.RPR)
	}
	if res.CapacityKWp != 120 || res.Slots != 3 || res.GoodSlots != 2 {
		t.Fatalf("unexpected counters %+v", res)
	}
	if math.Abs(res.HourlySlots-2.0/12) > 1e-12 {
		t.Fatalf("unexpected hourly slots %v", res.HourlySlots)
	}
	if res.IrradianceColumn != "GHI (W/m2)" {
		t.Fatalf("expected GHI column, got %q", res.IrradianceColumn)
	}
	if len(seen) != 1 || !seen[0].UsedTable || seen[0].ExcludedSlots != 1 || seen[0].ColumnIndex != 2 {
		t.Fatalf("unexpected diagnostics %+v", seen)
	}
}

func TestEstimateInlineIrradianceAndZeroGuard(t *testing.T) {
	est := NewEstimator(nil)
	res := est.Estimate([]IntervalRecord{{EnergyKWh: 5}}, nil)
	if res.RPR != 0 {
		t.Fatalf("expected RPR 0 without irradiance, got %v", res.RPR)
	}

	res = est.Estimate([]IntervalRecord{
		{Timestamp: "a", EnergyKWh: 3, Irradiance: ptr(0.5)},
		{Timestamp: "b", EnergyKWh: 3, Irradiance: ptr(600), IrradianceHeader: "GHI W/m2"},
	}, nil)
	if math.Abs(res.IrradianceKWhM2-0.55) > 1e-12 {
		t.Fatalf("expected 0.55, got %v", res.IrradianceKWhM2)
	}
}

func TestLogObserverWritesLine(t *testing.T) {
	var buf bytes.Buffer
	est := NewEstimator(LogObserver{Logger: log.New(&buf, "", 0)})
	est.Estimate([]IntervalRecord{{EnergyKWh: 1, Irradiance: ptr(1)}}, nil)
	if !strings.HasPrefix(buf.String(), "performance rpr: slots=1 good=1") {
		t.Fatalf("unexpected log line %q", buf.String())
	}
}

func TestIntervalRecordAliases(t *testing.T) {
	body := `[
		{"Eac_kWh": "12.5", "time": "2024-01-01 10:00", "InverterStatus": "Normal", "capacity_kWp": 250, "GHI": 0.4},
		{"energy": 3, "datetime": "2024-01-01 10:05", "kWp": "300"},
		{"production": null, "eac": 7}
	]`
	var records []IntervalRecord
	if err := json.Unmarshal([]byte(body), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	first := records[0]
	if first.EnergyKWh != 12.5 || first.Timestamp != "2024-01-01 10:00" || first.Status != "Normal" {
		t.Fatalf("unexpected record %+v", first)
	}
	if first.CapacityKWp == nil || *first.CapacityKWp != 250 || first.Irradiance == nil || *first.Irradiance != 0.4 || first.IrradianceHeader != "GHI" {
		t.Fatalf("unexpected optional fields %+v", first)
	}
	if records[1].EnergyKWh != 3 || records[1].CapacityKWp == nil || *records[1].CapacityKWp != 300 || records[1].Irradiance != nil {
		t.Fatalf("unexpected record %+v", records[1])
	}
	if records[2].EnergyKWh != 7 {
		t.Fatalf("expected eac alias, got %+v", records[2])
	}
}
