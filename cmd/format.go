package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/adialm/health-resilience-sim/internal/model"
	"github.com/adialm/health-resilience-sim/internal/refdata"
)

// printer formats populations and costs with thousands separators.
var printer = message.NewPrinter(language.English)

// writeJSON pretty-prints v to out.
func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSnapshot writes the outcome metrics and health-problem indices.
func formatSnapshot(out io.Writer, s model.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "METRIC\tVALUE\tCHANGE")
	_, _ = fmt.Fprintln(w, "------\t-----\t------")
	_, _ = fmt.Fprintf(w, "Mortality (per 1k)\t%.1f\t%+.1f\n", s.Mortality.Value, s.Mortality.Change)
	_, _ = fmt.Fprintf(w, "Hospital capacity (%%)\t%.0f\t%+.1f\n", s.HospitalCapacity.Value, s.HospitalCapacity.Change)
	_, _ = fmt.Fprintf(w, "Access score\t%.1f\t%+.1f\n", s.AccessScore.Value, s.AccessScore.Change)
	_, _ = fmt.Fprintf(w, "Resilience score\t%.1f\t%+.1f\n", s.ResilienceScore.Value, s.ResilienceScore.Change)
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "HEALTH PROBLEM\tINDEX")
	_, _ = fmt.Fprintln(w, "--------------\t-----")
	hp := s.HealthProblems
	_, _ = fmt.Fprintf(w, "Cardiometabolic\t%.0f%%\n", hp.Cardiometabolic)
	_, _ = fmt.Fprintf(w, "Access barriers\t%.0f%%\n", hp.AccessBarriers)
	_, _ = fmt.Fprintf(w, "Premature mortality\t%.0f%%\n", hp.PrematureMortality)
	_, _ = fmt.Fprintf(w, "Pediatric asthma\t%.0f%%\n", hp.PediatricAsthma)
	_, _ = fmt.Fprintf(w, "Substance use\t%.0f%%\n", hp.SubstanceUse)
	_ = w.Flush()
}

// formatDistricts writes a tabular list of districts.
func formatDistricts(out io.Writer, districts []model.District) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPOPULATION\tRISK\tASTHMA\tDIABETES\tUNINSURED\tLIFE_EXP")
	_, _ = fmt.Fprintln(w, "--\t----\t----------\t----\t------\t--------\t---------\t--------")
	for _, d := range districts {
		i := d.Indicators
		lifeExp := "n/a"
		if i.LifeExpectancy > 0 {
			lifeExp = fmt.Sprintf("%.1f", i.LifeExpectancy)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f%%\t%.1f%%\t%.1f%%\t%s\n",
			d.ID,
			d.Name,
			printer.Sprintf("%d", d.Population),
			d.RiskLevel,
			i.AsthmaPrevalence,
			i.DiabetesPrevalence,
			i.UninsuredRate,
			lifeExp,
		)
	}
	_ = w.Flush()
}

// formatSummary writes dataset-wide aggregates.
func formatSummary(out io.Writer, s refdata.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Districts:\t%d\n", s.Districts)
	_, _ = fmt.Fprintf(w, "Total population:\t%s\n", printer.Sprintf("%d", s.TotalPopulation))
	_, _ = fmt.Fprintf(w, "High-risk districts:\t%d\n", s.HighRisk)
	_, _ = fmt.Fprintf(w, "Asthma:\t%.1f%%\n", s.Asthma)
	_, _ = fmt.Fprintf(w, "Cardiometabolic:\t%.1f%%\n", s.Cardiometabolic)
	_, _ = fmt.Fprintf(w, "Access barriers:\t%.1f%%\n", s.AccessBarriers)
	_ = w.Flush()
}

// formatLevers writes the intervention lever table.
func formatLevers(out io.Writer, levers []model.Lever) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LEVER\tTARGET\tCOST\tPER_MONTH\tMAX_EFFECT")
	_, _ = fmt.Fprintln(w, "-----\t------\t----\t---------\t----------")
	for _, l := range levers {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%+.2f\t%+.1f\n",
			l.Name,
			l.TargetMetric,
			printer.Sprintf("$%.0f", l.Cost),
			l.EffectPerMonth,
			l.MaxEffect,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
