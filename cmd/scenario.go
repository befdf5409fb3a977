package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adialm/health-resilience-sim/internal/model"
	"github.com/adialm/health-resilience-sim/internal/projection"
	"github.com/adialm/health-resilience-sim/internal/scenario"
	"github.com/adialm/health-resilience-sim/internal/simulation"
	"github.com/adialm/health-resilience-sim/internal/store"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Create, edit and run saved scenarios",
	Long:  "Commands for managing saved scenarios, their interventions and policy settings, and recorded projection results.",
}

// -- scenario create --

var (
	scenarioName        string
	scenarioDescription string
	scenarioAccess      float64
	scenarioFunding     float64
	scenarioYears       int
)

var scenarioCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an empty scenario",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sc := scenario.New(scenarioName, scenarioDescription)
		sc.Policy = policyFromFlags(cmd, scenarioAccess, scenarioFunding, scenarioYears)
		if err := projection.ValidatePolicy(sc.Policy); err != nil {
			return eris.Wrap(err, "scenario create")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.CreateScenario(ctx, sc); err != nil {
			return eris.Wrap(err, "scenario create")
		}
		_, _ = fmt.Fprintln(os.Stdout, sc.ID)
		return nil
	},
}

// -- scenario list --

var (
	scenarioListLimit  int
	scenarioListOffset int
)

var scenarioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved scenarios",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		list, err := st.ListScenarios(ctx, store.ScenarioFilter{Limit: scenarioListLimit, Offset: scenarioListOffset})
		if err != nil {
			return eris.Wrap(err, "scenario list")
		}
		if len(list) == 0 {
			_, _ = fmt.Fprintln(os.Stderr, "No scenarios found.")
			return nil
		}
		formatScenarioList(os.Stdout, list)
		return nil
	},
}

// -- scenario show --

var scenarioShowCmd = &cobra.Command{
	Use:   "show <scenario-id>",
	Short: "Show a scenario with its interventions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sc, err := st.GetScenario(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "scenario show")
		}
		return writeJSON(os.Stdout, sc)
	},
}

// -- scenario add --

var (
	addType      string
	addName      string
	addDistrict  string
	addLng       float64
	addLat       float64
	addCapacity  int
	addCost      float64
	addSpecialty string
	addStartYear int
)

var scenarioAddCmd = &cobra.Command{
	Use:   "add <scenario-id>",
	Short: "Place an intervention in a scenario",
	Long: `Places an intervention. With --district the intervention is assigned to
that district; otherwise it goes to the district whose centroid is nearest
to --lng/--lat.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		t, err := model.ParseInterventionType(addType)
		if err != nil {
			return eris.Wrap(err, "scenario add")
		}
		engine, err := initEngine(ctx)
		if err != nil {
			return err
		}

		params := model.InterventionParams{
			Capacity:  addCapacity,
			Cost:      addCost,
			Specialty: addSpecialty,
			StartYear: addStartYear,
		}
		point := model.Point{Lng: addLng, Lat: addLat}
		ds := engine.Dataset()

		var iv model.Intervention
		if addDistrict != "" {
			d, ok := ds.District(addDistrict)
			if !ok {
				return eris.Errorf("scenario add: unknown district %q", addDistrict)
			}
			if !cmd.Flags().Changed("lng") && !cmd.Flags().Changed("lat") {
				point = d.Centroid
			}
			iv = scenario.NewIntervention(t, addName, model.Location{DistrictID: d.ID, Point: point}, params)
		} else {
			iv = scenario.Place(ds, t, addName, point, params)
		}

		err = editScenario(cmd, args[0], func(sc model.Scenario) (model.Scenario, error) {
			return scenario.AddIntervention(sc, iv), nil
		})
		if err != nil {
			return eris.Wrap(err, "scenario add")
		}
		_, _ = fmt.Fprintln(os.Stdout, iv.ID)
		return nil
	},
}

// -- scenario remove --

var scenarioRemoveCmd = &cobra.Command{
	Use:   "remove <scenario-id> <intervention-id>",
	Short: "Remove an intervention from a scenario",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := editScenario(cmd, args[0], func(sc model.Scenario) (model.Scenario, error) {
			return scenario.RemoveIntervention(sc, args[1])
		})
		return eris.Wrap(err, "scenario remove")
	},
}

// -- scenario policy --

var (
	policyAccess  float64
	policyFunding float64
	policyYears   int
)

var scenarioPolicyCmd = &cobra.Command{
	Use:   "policy <scenario-id>",
	Short: "Change a scenario's policy sliders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := editScenario(cmd, args[0], func(sc model.Scenario) (model.Scenario, error) {
			p := sc.Policy
			if cmd.Flags().Changed("access") {
				p.Access = policyAccess
			}
			if cmd.Flags().Changed("funding") {
				p.Funding = policyFunding
			}
			if cmd.Flags().Changed("years") {
				p.DurationYears = policyYears
			}
			if err := projection.ValidatePolicy(p); err != nil {
				return sc, err
			}
			return scenario.SetPolicy(sc, p), nil
		})
		return eris.Wrap(err, "scenario policy")
	},
}

// -- scenario reset --

var scenarioResetCmd = &cobra.Command{
	Use:   "reset <scenario-id>",
	Short: "Remove all interventions and restore default policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := editScenario(cmd, args[0], func(sc model.Scenario) (model.Scenario, error) {
			return scenario.Reset(sc), nil
		})
		return eris.Wrap(err, "scenario reset")
	},
}

// -- scenario run --

var (
	runQuiet bool
	runJSON  bool
)

var scenarioRunCmd = &cobra.Command{
	Use:   "run <scenario-id>",
	Short: "Project a scenario and record the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		engine, err := initEngine(ctx)
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sc, err := st.GetScenario(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "scenario run")
		}

		runner := simulation.NewRunner(engine, simulation.Stages(cfg.Simulation.StageDelaysMS))
		var progress simulation.ProgressFunc
		if !runQuiet {
			progress = func(p int) { _, _ = fmt.Fprintf(os.Stderr, "\rRunning %q... %3d%%", sc.Name, p) }
		}
		snap, err := runner.Run(ctx, *sc, progress)
		if !runQuiet {
			_, _ = fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return eris.Wrap(err, "scenario run")
		}

		res, err := st.SaveResult(ctx, sc.ID, sc.Policy, len(sc.Interventions), snap)
		if err != nil {
			return eris.Wrap(err, "scenario run: save result")
		}
		zap.L().Info("scenario run recorded", zap.String("scenario_id", sc.ID), zap.String("result_id", res.ID))

		if runJSON {
			return writeJSON(os.Stdout, res)
		}
		formatSnapshot(os.Stdout, snap)
		return nil
	},
}

// -- scenario results --

var resultsLimit int

var scenarioResultsCmd = &cobra.Command{
	Use:   "results <scenario-id>",
	Short: "List recorded projection results, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		results, err := st.ListResults(ctx, args[0], resultsLimit)
		if err != nil {
			return eris.Wrap(err, "scenario results")
		}
		if len(results) == 0 {
			_, _ = fmt.Fprintln(os.Stderr, "No results found.")
			return nil
		}
		formatResults(os.Stdout, results)
		return nil
	},
}

// -- scenario delete --

var scenarioDeleteCmd = &cobra.Command{
	Use:   "delete <scenario-id>",
	Short: "Delete a scenario and its results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return eris.Wrap(st.DeleteScenario(ctx, args[0]), "scenario delete")
	},
}

// editScenario loads a scenario, applies fn and saves the result.
func editScenario(cmd *cobra.Command, id string, fn func(model.Scenario) (model.Scenario, error)) error {
	ctx := cmd.Context()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	sc, err := st.GetScenario(ctx, id)
	if err != nil {
		return err
	}
	updated, err := fn(*sc)
	if err != nil {
		return err
	}
	return st.SaveScenario(ctx, updated)
}

// formatScenarioList writes a tabular list of scenarios to out.
func formatScenarioList(out io.Writer, list []store.ScenarioSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tINTERVENTIONS\tACCESS\tFUNDING\tYEARS\tMODIFIED")
	_, _ = fmt.Fprintln(w, "--\t----\t-------------\t------\t-------\t-----\t--------")
	for _, s := range list {
		name := s.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%.0f\t%.0f\t%d\t%s\n",
			truncateID(s.ID),
			name,
			s.Interventions,
			s.Policy.Access,
			s.Policy.Funding,
			s.Policy.DurationYears,
			s.LastModified.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatResults writes one line per recorded result.
func formatResults(out io.Writer, results []model.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tINTERVENTIONS\tPOLICY\tMORTALITY\tCAPACITY\tACCESS\tRESILIENCE")
	_, _ = fmt.Fprintln(w, "--\t-------\t-------------\t------\t---------\t--------\t------\t----------")
	for _, r := range results {
		s := r.Snapshot
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%.0f/%.0f/%dy\t%.1f (%+.1f)\t%.0f (%+.1f)\t%.1f (%+.1f)\t%.1f (%+.1f)\n",
			truncateID(r.ID),
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Interventions,
			r.Policy.Access, r.Policy.Funding, r.Policy.DurationYears,
			s.Mortality.Value, s.Mortality.Change,
			s.HospitalCapacity.Value, s.HospitalCapacity.Change,
			s.AccessScore.Value, s.AccessScore.Change,
			s.ResilienceScore.Value, s.ResilienceScore.Change,
		)
	}
	_ = w.Flush()
}

func init() {
	scenarioCreateCmd.Flags().StringVar(&scenarioName, "name", "", "scenario name")
	scenarioCreateCmd.Flags().StringVar(&scenarioDescription, "description", "", "scenario description")
	addPolicyFlags(scenarioCreateCmd, &scenarioAccess, &scenarioFunding, &scenarioYears)

	scenarioListCmd.Flags().IntVar(&scenarioListLimit, "limit", 100, "maximum scenarios to list")
	scenarioListCmd.Flags().IntVar(&scenarioListOffset, "offset", 0, "scenarios to skip")

	scenarioAddCmd.Flags().StringVar(&addType, "type", "", "intervention type: clinic, hospital, vaccination, policy, event")
	scenarioAddCmd.Flags().StringVar(&addName, "name", "", "display name")
	scenarioAddCmd.Flags().StringVar(&addDistrict, "district", "", "district id (default nearest to --lng/--lat)")
	scenarioAddCmd.Flags().Float64Var(&addLng, "lng", 0, "longitude")
	scenarioAddCmd.Flags().Float64Var(&addLat, "lat", 0, "latitude")
	scenarioAddCmd.Flags().IntVar(&addCapacity, "capacity", 0, "capacity (display only)")
	scenarioAddCmd.Flags().Float64Var(&addCost, "cost", 0, "cost (display only)")
	scenarioAddCmd.Flags().StringVar(&addSpecialty, "specialty", "", "specialty (display only)")
	scenarioAddCmd.Flags().IntVar(&addStartYear, "start-year", 0, "start year (display only)")
	_ = scenarioAddCmd.MarkFlagRequired("type")

	addPolicyFlags(scenarioPolicyCmd, &policyAccess, &policyFunding, &policyYears)

	scenarioRunCmd.Flags().BoolVar(&runQuiet, "quiet", false, "suppress progress output")
	scenarioRunCmd.Flags().BoolVar(&runJSON, "json", false, "output the recorded result as JSON")

	scenarioResultsCmd.Flags().IntVar(&resultsLimit, "limit", 20, "maximum results to list")

	scenarioCmd.AddCommand(
		scenarioCreateCmd,
		scenarioListCmd,
		scenarioShowCmd,
		scenarioAddCmd,
		scenarioRemoveCmd,
		scenarioPolicyCmd,
		scenarioResetCmd,
		scenarioRunCmd,
		scenarioResultsCmd,
		scenarioDeleteCmd,
	)
	rootCmd.AddCommand(scenarioCmd)
}
