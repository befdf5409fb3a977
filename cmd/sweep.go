package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adialm/health-resilience-sim/internal/model"
	"github.com/adialm/health-resilience-sim/internal/projection"
)

var (
	sweepClinics      int
	sweepHospitals    int
	sweepVaccinations int
	sweepAccessGrid   []float64
	sweepFundingGrid  []float64
	sweepFormat       string
	sweepOutput       string
	sweepConcurrency  int
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Project an intervention mix across every duration and a policy grid",
	Long: `Projects one intervention mix for durations 1 through 10 years, optionally
across a grid of access and funding values, and writes one row per
combination.

Examples:
  hrsim sweep --clinics 2 --hospitals 1
  hrsim sweep --vaccinations 3 --access-grid 0,50,100 --funding-grid 0,100 --format csv
  hrsim sweep --clinics 1 --format xlsx --out sweep.xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		engine, err := initEngine(ctx)
		if err != nil {
			return err
		}
		ivs, err := mixInterventions(sweepClinics, sweepHospitals, sweepVaccinations)
		if err != nil {
			return err
		}

		accesses := sweepAccessGrid
		if len(accesses) == 0 {
			accesses = []float64{cfg.Simulation.Access}
		}
		fundings := sweepFundingGrid
		if len(fundings) == 0 {
			fundings = []float64{cfg.Simulation.Funding}
		}

		rows, err := runSweep(ctx, engine, ivs, accesses, fundings, sweepConcurrency)
		if err != nil {
			return err
		}

		switch sweepFormat {
		case "table":
			writeSweepTable(os.Stdout, rows)
			return nil
		case "csv":
			out := io.Writer(os.Stdout)
			if sweepOutput != "" {
				f, err := os.Create(sweepOutput)
				if err != nil {
					return eris.Wrap(err, "sweep: create output")
				}
				defer f.Close() //nolint:errcheck
				out = f
			}
			return writeSweepCSV(out, rows)
		case "xlsx":
			if sweepOutput == "" {
				return eris.New("sweep: --out is required for xlsx")
			}
			if err := writeSweepXLSX(sweepOutput, rows); err != nil {
				return err
			}
			zap.L().Info("sweep written", zap.String("path", sweepOutput), zap.Int("rows", len(rows)))
			return nil
		default:
			return eris.Errorf("sweep: unsupported format %q (table, csv, xlsx)", sweepFormat)
		}
	},
}

// sweepRow is one projected grid point.
type sweepRow struct {
	Policy     model.Policy
	Multiplier float64
	Snapshot   model.Snapshot
}

// runSweep projects ivs for every access × funding × duration combination.
// Rows come back in grid order regardless of completion order.
func runSweep(ctx context.Context, engine *projection.Engine, ivs []model.Intervention, accesses, fundings []float64, concurrency int) ([]sweepRow, error) {
	var policies []model.Policy
	for _, a := range accesses {
		for _, f := range fundings {
			for y := projection.MinDurationYears; y <= projection.MaxDurationYears; y++ {
				p := model.Policy{Access: a, Funding: f, DurationYears: y}
				if err := projection.ValidatePolicy(p); err != nil {
					return nil, eris.Wrap(err, "sweep")
				}
				policies = append(policies, p)
			}
		}
	}

	if concurrency < 1 {
		concurrency = 1
	}
	rows := make([]sweepRow, len(policies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, p := range policies {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows[i] = sweepRow{
				Policy:     p,
				Multiplier: projection.PolicyMultiplier(p.Access, p.Funding),
				Snapshot:   engine.Project(ivs, p),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "sweep")
	}

	zap.L().Debug("sweep complete",
		zap.Int("rows", len(rows)),
		zap.Int("interventions", len(ivs)),
		zap.Int("concurrency", concurrency),
	)
	return rows, nil
}

var sweepHeader = []string{
	"access", "funding", "years", "multiplier",
	"mortality", "mortality_change",
	"hospital_capacity", "hospital_capacity_change",
	"access_score", "access_score_change",
	"resilience", "resilience_change",
	"cardiometabolic", "access_barriers", "premature_mortality", "pediatric_asthma", "substance_use",
}

// record renders r in sweepHeader order.
func (r sweepRow) record() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	s := r.Snapshot
	hp := s.HealthProblems
	return []string{
		f(r.Policy.Access), f(r.Policy.Funding), strconv.Itoa(r.Policy.DurationYears),
		strconv.FormatFloat(r.Multiplier, 'f', 4, 64),
		f(s.Mortality.Value), f(s.Mortality.Change),
		f(s.HospitalCapacity.Value), f(s.HospitalCapacity.Change),
		f(s.AccessScore.Value), f(s.AccessScore.Change),
		f(s.ResilienceScore.Value), f(s.ResilienceScore.Change),
		f(hp.Cardiometabolic), f(hp.AccessBarriers), f(hp.PrematureMortality), f(hp.PediatricAsthma), f(hp.SubstanceUse),
	}
}

func writeSweepTable(out io.Writer, rows []sweepRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ACCESS\tFUNDING\tYEARS\tMORTALITY\tCAPACITY\tACCESS_SCORE\tRESILIENCE\tCARDIO\tBARRIERS\tPREMATURE\tASTHMA\tSUBSTANCE")
	for _, r := range rows {
		s := r.Snapshot
		hp := s.HealthProblems
		_, _ = fmt.Fprintf(w, "%.0f\t%.0f\t%d\t%.1f (%+.1f)\t%.0f (%+.1f)\t%.1f (%+.1f)\t%.1f (%+.1f)\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\n",
			r.Policy.Access, r.Policy.Funding, r.Policy.DurationYears,
			s.Mortality.Value, s.Mortality.Change,
			s.HospitalCapacity.Value, s.HospitalCapacity.Change,
			s.AccessScore.Value, s.AccessScore.Change,
			s.ResilienceScore.Value, s.ResilienceScore.Change,
			hp.Cardiometabolic, hp.AccessBarriers, hp.PrematureMortality, hp.PediatricAsthma, hp.SubstanceUse,
		)
	}
	_ = w.Flush()
}

func writeSweepCSV(out io.Writer, rows []sweepRow) error {
	w := csv.NewWriter(out)
	if err := w.Write(sweepHeader); err != nil {
		return eris.Wrap(err, "sweep: write csv header")
	}
	for _, r := range rows {
		if err := w.Write(r.record()); err != nil {
			return eris.Wrap(err, "sweep: write csv row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "sweep: flush csv")
}

func writeSweepXLSX(path string, rows []sweepRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("sweep")
	if err != nil {
		return eris.Wrap(err, "sweep: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range sweepHeader {
		header.AddCell().SetString(h)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		for i, v := range r.record() {
			cell := row.AddCell()
			if i == 2 {
				cell.SetInt(r.Policy.DurationYears)
				continue
			}
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				cell.SetString(v)
				continue
			}
			cell.SetFloat(n)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "sweep: save xlsx")
	}
	return nil
}

func init() {
	sweepCmd.Flags().IntVar(&sweepClinics, "clinics", 0, "number of clinics")
	sweepCmd.Flags().IntVar(&sweepHospitals, "hospitals", 0, "number of hospitals")
	sweepCmd.Flags().IntVar(&sweepVaccinations, "vaccinations", 0, "number of vaccination sites")
	sweepCmd.Flags().Float64SliceVar(&sweepAccessGrid, "access-grid", nil, "access values to sweep (default from config)")
	sweepCmd.Flags().Float64SliceVar(&sweepFundingGrid, "funding-grid", nil, "funding values to sweep (default from config)")
	sweepCmd.Flags().StringVar(&sweepFormat, "format", "table", "output format: table, csv, xlsx")
	sweepCmd.Flags().StringVar(&sweepOutput, "out", "", "output file (required for xlsx)")
	sweepCmd.Flags().IntVar(&sweepConcurrency, "concurrency", 4, "concurrent projections")
	rootCmd.AddCommand(sweepCmd)
}
