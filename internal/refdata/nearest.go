package refdata

import (
	"github.com/adialm/health-resilience-sim/internal/geo"
	"github.com/adialm/health-resilience-sim/internal/model"
)

// NearestDistrict returns the district whose centroid is closest to p.
func (d *Dataset) NearestDistrict(p model.Point) (model.District, float64) {
	points := make([]model.Point, len(d.districts))
	for i, dist := range d.districts {
		points[i] = dist.Centroid
	}
	idx, km := geo.Nearest(p, points)
	return d.districts[idx], km
}
