// Package refdata holds the static district indicators and intervention
// levers that projections are computed from. A Dataset is immutable once
// built and safe for concurrent readers.
package refdata

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/adialm/health-resilience-sim/internal/model"
)

// ErrEmptyDataset is returned when a dataset has no districts or no population.
var ErrEmptyDataset = eris.New("refdata: dataset is empty")

// Dataset is a validated, read-only set of districts and levers.
type Dataset struct {
	districts []model.District
	levers    []model.Lever
	leverIdx  map[string]int
	totalPop  int
}

// New validates districts and levers and returns a Dataset holding copies of
// both. An empty district table or zero total population is a configuration
// error and fails here rather than producing NaN later.
func New(districts []model.District, levers []model.Lever) (*Dataset, error) {
	if len(districts) == 0 {
		return nil, eris.Wrap(ErrEmptyDataset, "refdata: no districts")
	}

	seen := make(map[string]bool, len(districts))
	var total int
	for _, d := range districts {
		if d.ID == "" {
			return nil, eris.Errorf("refdata: district %q has no id", d.Name)
		}
		if seen[d.ID] {
			return nil, eris.Errorf("refdata: duplicate district id %s", d.ID)
		}
		seen[d.ID] = true
		if d.Population <= 0 {
			return nil, eris.Errorf("refdata: district %s has non-positive population %d", d.ID, d.Population)
		}
		total += d.Population
	}
	if total <= 0 {
		return nil, eris.Wrap(ErrEmptyDataset, "refdata: zero total population")
	}

	idx := make(map[string]int, len(levers))
	for i, l := range levers {
		if l.Name == "" {
			return nil, eris.Errorf("refdata: lever %d has no name", i)
		}
		if _, dup := idx[l.Name]; dup {
			return nil, eris.Errorf("refdata: duplicate lever %s", l.Name)
		}
		idx[l.Name] = i
	}

	ds := &Dataset{
		districts: append([]model.District(nil), districts...),
		levers:    append([]model.Lever(nil), levers...),
		leverIdx:  idx,
		totalPop:  total,
	}
	return ds, nil
}

// Districts returns a copy of the district table in load order.
func (d *Dataset) Districts() []model.District {
	return append([]model.District(nil), d.districts...)
}

// District looks up a district by id.
func (d *Dataset) District(id string) (model.District, bool) {
	for _, dist := range d.districts {
		if dist.ID == id {
			return dist, true
		}
	}
	return model.District{}, false
}

// Levers returns a copy of the lever table in load order.
func (d *Dataset) Levers() []model.Lever {
	return append([]model.Lever(nil), d.levers...)
}

// Lever returns the lever with the given name. The bool is false when no
// lever matches; callers treat that as "no modeled effect".
func (d *Dataset) Lever(name string) (model.Lever, bool) {
	i, ok := d.leverIdx[name]
	if !ok {
		return model.Lever{}, false
	}
	return d.levers[i], true
}

// TotalPopulation returns the summed population of every district.
func (d *Dataset) TotalPopulation() int {
	return d.totalPop
}

// Baseline returns the population-weighted average of each tracked
// indicator. Zero-valued indicators are averaged as recorded.
func (d *Dataset) Baseline() model.Baseline {
	return model.Baseline{
		AsthmaPrevalence:   d.weighted(func(i model.Indicators) float64 { return i.AsthmaPrevalence }),
		DiabetesPrevalence: d.weighted(func(i model.Indicators) float64 { return i.DiabetesPrevalence }),
		HypertensionRate:   d.weighted(func(i model.Indicators) float64 { return i.HypertensionRate }),
		ObesityRate:        d.weighted(func(i model.Indicators) float64 { return i.ObesityRate }),
		UninsuredRate:      d.weighted(func(i model.Indicators) float64 { return i.UninsuredRate }),
		LifeExpectancy:     d.weighted(func(i model.Indicators) float64 { return i.LifeExpectancy }),
		OverdoseRate:       d.weighted(func(i model.Indicators) float64 { return i.OverdoseRate }),
		InfantMortality:    d.weighted(func(i model.Indicators) float64 { return i.InfantMortality }),
	}
}

func (d *Dataset) weighted(get func(model.Indicators) float64) float64 {
	var sum float64
	for _, dist := range d.districts {
		sum += get(dist.Indicators) * float64(dist.Population)
	}
	return sum / float64(d.totalPop)
}

// HighRisk returns the districts classified as high risk.
func (d *Dataset) HighRisk() []model.District {
	var out []model.District
	for _, dist := range d.districts {
		if dist.RiskLevel == model.RiskHigh {
			out = append(out, dist)
		}
	}
	return out
}

// Summary aggregates display statistics across all districts.
type Summary struct {
	Districts       int     `json:"districts"`
	TotalPopulation int     `json:"total_population"`
	HighRisk        int     `json:"high_risk"`
	Asthma          float64 `json:"asthma"`
	Cardiometabolic float64 `json:"cardiometabolic"`
	AccessBarriers  float64 `json:"access_barriers"`
}

// Summary returns district counts and population-weighted averages of the
// per-district asthma, cardiometabolic and access-barrier scores.
func (d *Dataset) Summary() Summary {
	return Summary{
		Districts:       len(d.districts),
		TotalPopulation: d.totalPop,
		HighRisk:        len(d.HighRisk()),
		Asthma:          round1(d.weighted(func(i model.Indicators) float64 { return i.AsthmaPrevalence })),
		Cardiometabolic: round1(d.weighted(cardiometabolicScore)),
		AccessBarriers:  round1(d.weighted(func(i model.Indicators) float64 { return i.UninsuredRate })),
	}
}

// cardiometabolicScore is the unweighted mean of the three cardiometabolic
// components for one district.
func cardiometabolicScore(i model.Indicators) float64 {
	return (i.DiabetesPrevalence + i.HypertensionRate + i.ObesityRate) / 3
}

// WithCentroids returns a copy of the dataset with district centroids
// replaced from the given map. Districts missing from the map keep theirs.
func (d *Dataset) WithCentroids(centroids map[string]model.Point) *Dataset {
	out := *d
	out.districts = d.Districts()
	for i, dist := range out.districts {
		if p, ok := centroids[dist.ID]; ok {
			out.districts[i].Centroid = p
		}
	}
	return &out
}

// SortedByRisk returns districts ordered high, medium, low, then by name.
func (d *Dataset) SortedByRisk() []model.District {
	rank := map[model.RiskLevel]int{model.RiskHigh: 0, model.RiskMedium: 1, model.RiskLow: 2}
	out := d.Districts()
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := riskRank(rank, out[i].RiskLevel), riskRank(rank, out[j].RiskLevel)
		if ri != rj {
			return ri < rj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func riskRank(rank map[model.RiskLevel]int, r model.RiskLevel) int {
	if v, ok := rank[r]; ok {
		return v
	}
	return len(rank)
}

func round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
