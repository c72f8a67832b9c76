package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	production "isolar-cloud/internal/production/domain"
)

// DefaultPeriodMaxDays is the longest accepted reporting period.
const DefaultPeriodMaxDays = 31

// DayTotal is a rounded daily production figure.
type DayTotal struct {
	Date       string `json:"date"`
	Production int64  `json:"production"`
}

// PeriodCheck summarizes the day span covered by a parse result.
type PeriodCheck struct {
	Valid           bool       `json:"valid"`
	Days            int        `json:"days"`
	MaxDays         int        `json:"max_days"`
	StartDate       string     `json:"start_date"`
	EndDate         string     `json:"end_date"`
	TotalProduction int64      `json:"total_production"`
	DailyProduction []DayTotal `json:"daily_production"`
	Message         string     `json:"message"`
}

// CheckPeriod validates that a successful result covers at most maxDays
// calendar days. Totals are rounded to whole kWh.
func CheckPeriod(result production.ParseResult, maxDays int) PeriodCheck {
	if maxDays <= 0 {
		maxDays = DefaultPeriodMaxDays
	}
	check := PeriodCheck{MaxDays: maxDays}
	if !result.Success || result.FirstDay == nil || result.LastDay == nil {
		check.Message = "no production days"
		return check
	}

	start, errStart := time.Parse(production.DayLayout, *result.FirstDay)
	end, errEnd := time.Parse(production.DayLayout, *result.LastDay)
	if errStart != nil || errEnd != nil {
		check.Message = "invalid production days"
		return check
	}

	check.StartDate = *result.FirstDay
	check.EndDate = *result.LastDay
	check.Days = int(end.Sub(start).Hours()/24) + 1
	check.Valid = check.Days <= maxDays

	total := decimal.Zero
	for _, day := range result.Days() {
		value := decimal.NewFromFloat(result.DailyProduction[day])
		total = total.Add(value)
		check.DailyProduction = append(check.DailyProduction, DayTotal{
			Date:       day,
			Production: value.Round(0).IntPart(),
		})
	}
	check.TotalProduction = total.Round(0).IntPart()

	if check.Valid {
		check.Message = fmt.Sprintf("OK — %d days (%s → %s) — %s kWh",
			check.Days, check.StartDate, check.EndDate, groupThousands(check.TotalProduction))
	} else {
		check.Message = fmt.Sprintf("period of %d days (%s → %s) exceeds %d days",
			check.Days, check.StartDate, check.EndDate, maxDays)
	}
	return check
}

func groupThousands(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}
