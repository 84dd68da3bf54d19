package advisor

import (
	"fmt"
	"strings"
	"time"

	"github.com/rshade/carbonfocus/internal/climate"
	"github.com/rshade/carbonfocus/internal/emissions"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/greenops"
	"github.com/rshade/carbonfocus/internal/trend"
)

// BuildPrompt renders the prompt for req. now supplies the date line.
func BuildPrompt(req Request, now time.Time) (string, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeComprehensive
	}

	var b strings.Builder
	switch mode {
	case ModeComprehensive:
		writeComprehensive(&b, req, now)
	case ModeQuickTips:
		writeQuickTips(&b, req)
	case ModeCompare:
		if req.Reference == nil {
			return "", fmt.Errorf("%w: compare needs a reference footprint", ErrInvalidRequest)
		}
		writeCompare(&b, req)
	case ModeActionPlan:
		if err := writeActionPlan(&b, req); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, mode)
	}

	if g := strings.TrimSpace(req.Guidance); g != "" && mode != ModeComprehensive {
		fmt.Fprintf(&b, "\nUser's specific context/goals: %s\n", g)
	}
	return b.String(), nil
}

func writeComprehensive(b *strings.Builder, req Request, now time.Time) {
	fp := req.Footprint
	ppm, ppmSource := req.Climate.CO2PPM()

	b.WriteString("You are an expert climate scientist and sustainability advisor. ")
	b.WriteString("Analyze this person's carbon footprint with deep insight and actionable recommendations.\n\n")

	b.WriteString("## CURRENT CONTEXT\n")
	fmt.Fprintf(b, "- Date: %s\n", now.Format("January 02, 2006"))
	fmt.Fprintf(b, "- Atmospheric CO₂: %.1f ppm (%s)\n", ppm, ppmSource)
	fmt.Fprintf(b, "- Paris Agreement Target: Stay below 1.5°C warming → requires %.1f kg CO₂/day per person\n",
		emissions.ParisDailyKg)
	headline := climate.DefaultHeadline
	if req.Climate != nil && req.Climate.Headline != "" {
		headline = req.Climate.Headline
	}
	fmt.Fprintf(b, "- Latest Climate News: %s\n", headline)
	if req.Climate != nil && req.Climate.GridIntensityGPerKWh != nil {
		index := req.Climate.GridIndex
		if index == "" {
			index = "moderate"
		}
		fmt.Fprintf(b, "- Current Grid Carbon Intensity: %.0f gCO₂/kWh (%s - %s, %s)\n",
			*req.Climate.GridIntensityGPerKWh, index, strings.ToUpper(req.Climate.GridRegion), req.Climate.GridSource)
	}
	if loc := strings.TrimSpace(req.Location); loc != "" {
		fmt.Fprintf(b, "- User Location: %s\n", loc)
	}

	guidance := strings.TrimSpace(req.Guidance)
	if guidance != "" {
		fmt.Fprintf(b, "\n## USER'S SPECIFIC GUIDANCE\n%s\n", guidance)
	}

	b.WriteString("\n## USER'S DAILY FOOTPRINT\n")
	fmt.Fprintf(b, "- **Total Daily Emissions: %.2f kg CO₂**\n", fp.Total)
	writeBreakdown(b, fp, req.Activity)

	if req.Trend != nil && !req.Trend.NoData {
		writeTrend(b, fp, *req.Trend)
	}

	b.WriteString("\n## YOUR TASK\n")
	b.WriteString("Provide a comprehensive, personalized sustainability analysis:\n\n")
	b.WriteString("1. **Impact Assessment** (2-3 sentences)\n")
	fmt.Fprintf(b, "   - Where does this person stand vs the Paris Agreement target (%.1f kg/day)?\n", emissions.ParisDailyKg)
	b.WriteString("   - What's the biggest contributor to their footprint?\n")
	fmt.Fprintf(b, "   - If they maintain this rate, what's their annual impact (about %.2f tonnes)?\n\n",
		fp.Total*greenops.DaysPerYear/greenops.TonsToKg)
	b.WriteString("2. **Top 3 Personalized Recommendations**\n")
	b.WriteString("   For each recommendation:\n")
	b.WriteString("   - Be SPECIFIC to their actual usage (don't suggest generic advice)\n")
	b.WriteString("   - Quantify potential CO₂ savings\n")
	b.WriteString("   - Explain how it helps the climate\n")
	b.WriteString("   - Make it actionable (what exactly should they do?)\n")
	if guidance != "" {
		b.WriteString("   - IMPORTANT: Pay special attention to the user's specific guidance and tailor your recommendations accordingly\n")
	}
	b.WriteString("\n3. **Positive Recognition**\n")
	b.WriteString("   - Highlight what they're doing well\n")
	b.WriteString("   - Show how their actions contribute to climate goals\n\n")
	b.WriteString("4. **Long-term Perspective**\n")
	b.WriteString("   - Connect their daily choices to global climate impact\n")
	b.WriteString("   - Inspire hope and agency\n\n")
	b.WriteString("Keep the tone encouraging, scientific, and action-oriented. Use data and numbers to make it concrete.\n")
}

func writeBreakdown(b *strings.Builder, fp footprint.Result, activity *footprint.ActivityInput) {
	for _, c := range emissions.Categories() {
		fmt.Fprintf(b, "- %s: %.2f kg CO₂", c.Label(), fp.Category(c))
		if detail := activityDetail(c, activity); detail != "" {
			fmt.Fprintf(b, " (%s)", detail)
		}
		b.WriteString("\n")
	}
}

func activityDetail(c emissions.Category, a *footprint.ActivityInput) string {
	if a == nil {
		return ""
	}
	switch c {
	case emissions.CategoryTransport:
		if a.TransportMode == "" {
			return ""
		}
		return fmt.Sprintf("%s, %g km", a.TransportMode, a.DistanceKm)
	case emissions.CategoryDiet:
		return a.DietType
	case emissions.CategoryHeating:
		if a.HeatingMethod == "" {
			return ""
		}
		return fmt.Sprintf("%s, %g hours", a.HeatingMethod, a.HeatingHours)
	case emissions.CategoryElectricity:
		return fmt.Sprintf("%g kWh", a.ElectricityKWh)
	case emissions.CategoryConsumption:
		items := make([]string, 0, len(a.Consumption))
		for _, item := range a.Consumption {
			items = append(items, fmt.Sprintf("%g × %s", item.Quantity, item.Key))
		}
		return strings.Join(items, ", ")
	default:
		return ""
	}
}

func writeTrend(b *strings.Builder, fp footprint.Result, s trend.Summary) {
	avg, _ := s.Average()
	days := int(s.Window.To.Sub(s.Window.From).Hours() / 24)
	if s.Window.From.IsZero() || s.Window.To.IsZero() {
		fmt.Fprintf(b, "\n## HISTORICAL TREND (%d records)\n", s.Count)
	} else {
		fmt.Fprintf(b, "\n## HISTORICAL TREND (%d days, %d records)\n", days, s.Count)
	}
	fmt.Fprintf(b, "- Average Daily: %.2f kg CO₂\n", avg)
	if s.BestDay != nil {
		fmt.Fprintf(b, "- Best Day: %.2f kg CO₂\n", s.BestDay.Total)
	}
	if s.WorstDay != nil {
		fmt.Fprintf(b, "- Worst Day: %.2f kg CO₂\n", s.WorstDay.Total)
	}
	fmt.Fprintf(b, "- Total Emissions: %.1f kg CO₂\n", s.SumTotal)
	label := "Needs attention"
	if trend.DirectionOf(fp.Total, s) == trend.DirectionImproving {
		label = "Improving"
	}
	fmt.Fprintf(b, "- Trend: %s\n", label)
}

func writeQuickTips(b *strings.Builder, req Request) {
	largest := req.Footprint.Largest()
	contributor := "none"
	if largest != "" {
		contributor = largest.Label()
	}
	fmt.Fprintf(b, "Give 3 quick, actionable tips to reduce a %.1f kg CO₂/day footprint. ", req.Footprint.Total)
	fmt.Fprintf(b, "The biggest contributor is %s. Be specific and brief.\n", contributor)
}

func writeCompare(b *strings.Builder, req Request) {
	cur, ref := req.Footprint, *req.Reference
	change := cur.Total - ref.Total
	pct, err := trend.PercentChange(cur, ref)

	b.WriteString("You are a sustainability coach analyzing carbon footprint changes.\n\n")
	b.WriteString("## CHANGE ANALYSIS\n")
	fmt.Fprintf(b, "- Previous: %.2f kg CO₂/day\n", ref.Total)
	fmt.Fprintf(b, "- Current: %.2f kg CO₂/day\n", cur.Total)
	if err != nil {
		fmt.Fprintf(b, "- Change: %+.2f kg CO₂/day\n", change)
	} else {
		fmt.Fprintf(b, "- Change: %+.2f kg CO₂/day (%+.1f%%)\n", change, pct*100)
	}

	b.WriteString("\n## CATEGORY BREAKDOWN\n")
	for _, c := range emissions.Categories() {
		fmt.Fprintf(b, "- %s: %.2f → %.2f kg CO₂ (%+.2f)\n",
			c.Label(), ref.Category(c), cur.Category(c), cur.Category(c)-ref.Category(c))
	}

	b.WriteString("\n## YOUR TASK\n")
	b.WriteString("1. Analyze what drove the change (which categories changed most?)\n")
	b.WriteString("2. If improved: Celebrate the progress and encourage consistency\n")
	b.WriteString("3. If worse: Identify causes without judgment, suggest corrections\n")
	b.WriteString("4. Provide 2 specific next steps\n\n")
	b.WriteString("Keep it brief (4-5 sentences), encouraging, and actionable.\n")
}

func writeActionPlan(b *strings.Builder, req Request) error {
	current := req.CurrentAverage
	if current <= 0 && req.Trend != nil {
		current, _ = req.Trend.Average()
	}
	if current <= 0 {
		current = req.Footprint.Total
	}
	if current <= 0 {
		return fmt.Errorf("%w: action plan needs a positive current average", ErrInvalidRequest)
	}
	target := req.TargetDaily
	if target <= 0 {
		target = emissions.ParisDailyKg
	}

	needed := current - target
	pct := needed / current * 100

	b.WriteString("You are a climate action strategist helping someone set carbon reduction goals.\n\n")
	b.WriteString("## CURRENT SITUATION\n")
	fmt.Fprintf(b, "- Current Average: %.2f kg CO₂/day\n", current)
	fmt.Fprintf(b, "- Target: %.2f kg CO₂/day (Paris Agreement: %.1f)\n", target, emissions.ParisDailyKg)
	fmt.Fprintf(b, "- Reduction Needed: %.2f kg CO₂/day (%.1f%% reduction)\n", needed, pct)
	if largest := req.Footprint.Largest(); largest != "" {
		fmt.Fprintf(b, "- Biggest Contributor: %s\n", largest.Label())
	}

	b.WriteString("\n## YOUR TASK\n")
	b.WriteString("Design a realistic 3-month action plan:\n\n")
	b.WriteString("1. **Month 1 Goal**: What's an achievable first step? (aim for 10-20% reduction)\n")
	b.WriteString("2. **Month 2 Goal**: Build on month 1 progress\n")
	b.WriteString("3. **Month 3 Goal**: Reach a sustainable level closer to the target\n\n")
	b.WriteString("For each month:\n")
	b.WriteString("- Set a specific emissions target\n")
	b.WriteString("- Suggest 1-2 concrete actions\n")
	b.WriteString("- Explain the expected impact\n\n")
	b.WriteString("Keep it motivating and achievable. Break down big goals into manageable steps.\n")
	return nil
}
