package performance

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// DefaultDailyGHI is the daily irradiance assumed when none is supplied, in kWh/m².
const DefaultDailyGHI = 5.0

// DayProduction is the energy of one day.
type DayProduction struct {
	Day       string  `json:"day"`
	EnergyKWh float64 `json:"production"`
}

// DailyRPR is the performance ratio of one day in percent.
type DailyRPR struct {
	Day string  `json:"date"`
	RPR float64 `json:"rpr"`
}

// DailySeries computes a per-day RPR percentage, rounded to one decimal.
// Days without irradiance or without capacity report 0. When dailyGHI is empty
// every day assumes DefaultDailyGHI.
func DailySeries(days []DayProduction, dailyGHI []float64, capacityKWp float64) []DailyRPR {
	if len(days) == 0 || capacityKWp <= 0 {
		return []DailyRPR{}
	}
	series := make([]DailyRPR, 0, len(days))
	for i, d := range days {
		ghi := DefaultDailyGHI
		if len(dailyGHI) > 0 {
			ghi = 0
			if i < len(dailyGHI) {
				ghi = dailyGHI[i]
			}
		}
		label := d.Day
		if label == "" {
			label = fmt.Sprintf("%02d", i+1)
		}
		var rpr float64
		if ghi > 0 {
			rpr = decimal.NewFromFloat(d.EnergyKWh).
				Div(decimal.NewFromFloat(capacityKWp).Mul(decimal.NewFromFloat(ghi))).
				Mul(decimal.NewFromInt(100)).
				Round(1).
				InexactFloat64()
		}
		series = append(series, DailyRPR{Day: label, RPR: rpr})
	}
	return series
}

// IrradianceProfile spreads daily GHI over a half-sine daylight curve and
// returns the irradiance power of every slot (kW/m²). The slots of a day sum to
// GHI × slots per hour, so summing the profile and dividing by 12 returns the
// daily energy for 5-minute steps.
func IrradianceProfile(dailyGHI []float64, stepMinutes int, daylightHours, dayStartHour float64) []float64 {
	if len(dailyGHI) == 0 || stepMinutes <= 0 {
		return []float64{}
	}
	stepsPerDay := int(math.Round(1440 / float64(stepMinutes)))
	daylightSlots := int(math.Round(daylightHours * 60 / float64(stepMinutes)))
	startIdx := int(math.Round(dayStartHour * 60 / float64(stepMinutes)))

	shape := make([]float64, daylightSlots)
	var sumShape float64
	for j := range shape {
		shape[j] = math.Sin(math.Pi * (float64(j) + 0.5) / float64(daylightSlots))
		sumShape += shape[j]
	}

	out := make([]float64, 0, stepsPerDay*len(dailyGHI))
	for _, ghi := range dailyGHI {
		if ghi < 0 || math.IsNaN(ghi) || math.IsInf(ghi, 0) {
			ghi = 0
		}
		var scale float64
		if sumShape > 0 {
			scale = ghi * slotsPerHour / sumShape
		}
		for i := 0; i < stepsPerDay; i++ {
			k := i - startIdx
			if k >= 0 && k < daylightSlots {
				out = append(out, scale*shape[k])
				continue
			}
			out = append(out, 0)
		}
	}
	return out
}
