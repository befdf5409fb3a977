// Package geo provides the small amount of spatial plumbing the simulator
// needs: point encoding for storage, centroid loading from shapefiles, and
// nearest-centroid lookup for marker placement.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/adialm/health-resilience-sim/internal/model"
)

// SRID is the spatial reference of every stored coordinate (WGS84).
const SRID = 4326

const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance between two points.
func HaversineKM(a, b model.Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Nearest returns the index of the candidate closest to p and its distance.
// Returns -1 when candidates is empty.
func Nearest(p model.Point, candidates []model.Point) (int, float64) {
	best, bestKM := -1, math.Inf(1)
	for i, c := range candidates {
		if km := HaversineKM(p, c); km < bestKM {
			best, bestKM = i, km
		}
	}
	return best, bestKM
}

// EncodePoint converts a point to EWKB bytes with SRID 4326.
func EncodePoint(p model.Point) ([]byte, error) {
	g := geom.NewPointFlat(geom.XY, []float64{p.Lng, p.Lat}).SetSRID(SRID)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode point")
	}
	return data, nil
}

// DecodePoint parses EWKB bytes produced by EncodePoint. Empty input decodes
// to the zero point.
func DecodePoint(data []byte) (model.Point, error) {
	if len(data) == 0 {
		return model.Point{}, nil
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return model.Point{}, eris.Wrap(err, "geo: decode point")
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return model.Point{}, eris.Errorf("geo: expected point geometry, got %T", g)
	}
	return model.Point{Lng: pt.X(), Lat: pt.Y()}, nil
}
