package refdata

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/adialm/health-resilience-sim/internal/geo"
	"github.com/adialm/health-resilience-sim/internal/model"
)

// Source describes where to load a dataset from. Empty Path selects the
// built-in dataset.
type Source struct {
	Path            string
	BoundariesPath  string
	BoundariesField string
}

// Load builds a Dataset from src. YAML and XLSX files are supported, either
// local or at an http(s) URL; a boundaries shapefile, if given, overrides
// district centroids.
func Load(ctx context.Context, src Source) (*Dataset, error) {
	log := zap.L().With(zap.String("component", "refdata"))

	local := src.Path
	ext := strings.ToLower(filepath.Ext(local))
	if isRemote(src.Path) {
		ext = remoteExt(src.Path)
	}
	if src.Path != "" && !supportedExt(ext) {
		return nil, eris.Errorf("refdata: unsupported dataset format %q", ext)
	}

	if isRemote(src.Path) {
		dir, err := os.MkdirTemp("", "hrsim-dataset-")
		if err != nil {
			return nil, eris.Wrap(err, "refdata: create temp dir")
		}
		defer os.RemoveAll(dir) //nolint:errcheck

		local, err = fetchToDir(ctx, src.Path, dir)
		if err != nil {
			return nil, err
		}
	}

	var (
		ds  *Dataset
		err error
	)
	switch {
	case local == "":
		ds = Default()
	case ext == ".xlsx":
		ds, err = LoadXLSX(local)
	default:
		ds, err = LoadYAML(local)
	}
	if err != nil {
		return nil, err
	}

	if src.BoundariesPath != "" {
		field := src.BoundariesField
		if field == "" {
			field = "ZCTA5CE20"
		}
		centroids, err := geo.LoadCentroids(src.BoundariesPath, field)
		if err != nil {
			return nil, eris.Wrap(err, "refdata: load boundaries")
		}
		ds = ds.WithCentroids(centroids)
	}

	log.Info("dataset loaded",
		zap.String("path", src.Path),
		zap.Int("districts", len(ds.districts)),
		zap.Int("levers", len(ds.levers)),
		zap.Int("population", ds.totalPop),
	)
	return ds, nil
}

func supportedExt(ext string) bool {
	return ext == ".yaml" || ext == ".yml" || ext == ".xlsx"
}

// fileFormat is the on-disk YAML layout.
type fileFormat struct {
	Districts []model.District `yaml:"districts"`
	Levers    []model.Lever    `yaml:"levers"`
}

// LoadYAML reads a dataset from a YAML file with top-level "districts" and
// "levers" keys.
func LoadYAML(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: read %s", path)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "refdata: parse yaml")
	}

	ds, err := New(f.Districts, f.Levers)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: load %s", path)
	}
	return ds, nil
}

// Workbook sheet names read by LoadXLSX.
const (
	SheetDistricts = "districts"
	SheetLevers    = "levers"
)

// LoadXLSX reads a dataset workbook with a "districts" sheet and a "levers"
// sheet. The first row of each sheet is a header; columns are matched by
// header name, case-insensitively.
func LoadXLSX(path string) (*Dataset, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "refdata: open workbook")
	}

	districtRows, err := sheetRows(f, SheetDistricts)
	if err != nil {
		return nil, err
	}
	leverRows, err := sheetRows(f, SheetLevers)
	if err != nil {
		return nil, err
	}

	var districts []model.District
	for i, row := range districtRows {
		d, err := parseDistrictRow(row)
		if err != nil {
			return nil, eris.Wrapf(err, "refdata: districts row %d", i+2)
		}
		districts = append(districts, d)
	}

	var levers []model.Lever
	for i, row := range leverRows {
		l, err := parseLeverRow(row)
		if err != nil {
			return nil, eris.Wrapf(err, "refdata: levers row %d", i+2)
		}
		levers = append(levers, l)
	}

	ds, err := New(districts, levers)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: load %s", path)
	}
	return ds, nil
}

// record is one sheet row keyed by lower-cased header.
type record map[string]string

func sheetRows(f *xlsx.File, name string) ([]record, error) {
	sheet, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("refdata: sheet %q not found", name)
	}
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	header := rowToStrings(sheet.Rows[0])
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var out []record
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if isBlank(cells) {
			continue
		}
		rec := make(record, len(header))
		for i, h := range header {
			if i < len(cells) {
				rec[h] = strings.TrimSpace(cells[i])
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (r record) float(key string) (float64, error) {
	v := r[key]
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "column %s", key)
	}
	return f, nil
}

func parseDistrictRow(r record) (model.District, error) {
	d := model.District{
		ID:        r["id"],
		Name:      r["name"],
		RiskLevel: model.RiskLevel(strings.ToLower(r["risk_level"])),
	}

	pop, err := r.float("population")
	if err != nil {
		return d, err
	}
	d.Population = int(pop)

	fields := []struct {
		key string
		dst *float64
	}{
		{"asthma_prevalence", &d.Indicators.AsthmaPrevalence},
		{"diabetes_prevalence", &d.Indicators.DiabetesPrevalence},
		{"hypertension_rate", &d.Indicators.HypertensionRate},
		{"obesity_rate", &d.Indicators.ObesityRate},
		{"physical_inactivity", &d.Indicators.PhysicalInactivity},
		{"smoking", &d.Indicators.Smoking},
		{"uninsured_rate", &d.Indicators.UninsuredRate},
		{"life_expectancy", &d.Indicators.LifeExpectancy},
		{"overdose_rate", &d.Indicators.OverdoseRate},
		{"infant_mortality_per_1k", &d.Indicators.InfantMortality},
		{"low_birthweight", &d.Indicators.LowBirthweight},
		{"clinicians_per_10k", &d.Indicators.CliniciansPer10k},
		{"resilience_score_0", &d.Indicators.ResilienceScore0},
		{"lng", &d.Centroid.Lng},
		{"lat", &d.Centroid.Lat},
	}
	for _, f := range fields {
		v, err := r.float(f.key)
		if err != nil {
			return d, err
		}
		*f.dst = v
	}
	return d, nil
}

func parseLeverRow(r record) (model.Lever, error) {
	l := model.Lever{Name: r["name"], TargetMetric: r["target_metric"]}

	var err error
	if l.Cost, err = r.float("cost"); err != nil {
		return l, err
	}
	if l.EffectPerMonth, err = r.float("effect_per_month"); err != nil {
		return l, err
	}
	if l.MaxEffect, err = r.float("max_effect"); err != nil {
		return l, err
	}
	return l, nil
}
