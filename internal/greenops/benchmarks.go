package greenops

import (
	"math"

	"github.com/rshade/carbonfocus/internal/emissions"
)

// Compare places a daily footprint against annual scale, the Paris target
// and the world average.
func Compare(dailyKg float64) (Comparison, error) {
	if math.IsNaN(dailyKg) || math.IsInf(dailyKg, 0) {
		return Comparison{}, ErrCalculationOverflow
	}
	if dailyKg < 0 {
		return Comparison{}, ErrNegativeValue
	}

	annual := dailyKg * DaysPerYear
	c := Comparison{
		DailyKg:      dailyKg,
		AnnualKg:     annual,
		AnnualTonnes: annual / TonsToKg,
		VsParis:      delta(dailyKg, emissions.ParisDailyKg),
		VsWorld:      delta(dailyKg, emissions.WorldAverageDailyKg),
	}
	for _, b := range emissions.Targets() {
		if dailyKg <= b.DailyKg {
			c.Below = append(c.Below, b.Key)
		}
	}
	return c, nil
}

func delta(value, benchmark float64) Delta {
	d := Delta{BenchmarkKg: benchmark, Kg: value - benchmark}
	if benchmark != 0 {
		d.Percent = d.Kg / benchmark * 100
	}
	return d
}

// AssessGoal computes target = average × (1 − pct/100) and relates it to
// the Paris benchmark. pct must be in (0, 100].
func AssessGoal(currentAverageKg, pct float64) (GoalAssessment, error) {
	if math.IsNaN(currentAverageKg) || math.IsInf(currentAverageKg, 0) {
		return GoalAssessment{}, ErrCalculationOverflow
	}
	if currentAverageKg < 0 {
		return GoalAssessment{}, ErrNegativeValue
	}
	if math.IsNaN(pct) || pct <= 0 || pct > 100 {
		return GoalAssessment{}, ErrInvalidReduction
	}

	target := currentAverageKg * (1 - pct/100)
	saving := currentAverageKg - target
	return GoalAssessment{
		CurrentAverageKg: currentAverageKg,
		ReductionPercent: pct,
		TargetDailyKg:    target,
		DailySavingKg:    saving,
		AnnualSavingKg:   saving * DaysPerYear,
		MeetsParis:       target < emissions.ParisDailyKg,
		GapToParisKg:     target - emissions.ParisDailyKg,
	}, nil
}
