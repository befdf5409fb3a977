package geo

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/adialm/health-resilience-sim/internal/model"
)

// LoadCentroids reads a polygon shapefile of district boundaries and returns
// the centroid of each feature keyed by the value of idField.
func LoadCentroids(shpPath, idField string) (map[string]model.Point, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	idIdx := fieldIndex(reader, idField)
	if idIdx < 0 {
		return nil, eris.Errorf("geo: shapefile field %s not found", idField)
	}

	log := zap.L().With(zap.String("component", "geo.loader"), zap.String("path", shpPath))

	out := make(map[string]model.Point)
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		id := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		if id == "" || shape == nil {
			skipped++
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}
		c, ok := centroid(mp)
		if !ok {
			skipped++
			continue
		}
		out[id] = c
	}

	if skipped > 0 {
		log.Debug("geo: skipped shapefile records", zap.Int("skipped", skipped))
	}
	log.Info("district centroids loaded", zap.Int("records", len(out)))
	return out, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon,
// one polygon per part.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(SRID)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			continue
		}
		if err := mp.Push(poly); err != nil {
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// centroid returns the area-weighted centroid of the outer rings of mp.
// Degenerate rings (zero area) fall back to the vertex mean.
func centroid(mp *geom.MultiPolygon) (model.Point, bool) {
	var area, cx, cy float64
	var sumX, sumY float64
	var n int

	for i := 0; i < mp.NumPolygons(); i++ {
		ring := mp.Polygon(i).LinearRing(0).FlatCoords()
		for k := 0; k+3 < len(ring); k += 2 {
			x0, y0 := ring[k], ring[k+1]
			x1, y1 := ring[k+2], ring[k+3]
			cross := x0*y1 - x1*y0
			area += cross
			cx += (x0 + x1) * cross
			cy += (y0 + y1) * cross
		}
		for k := 0; k+1 < len(ring); k += 2 {
			sumX += ring[k]
			sumY += ring[k+1]
			n++
		}
	}

	if n == 0 {
		return model.Point{}, false
	}
	if area == 0 {
		return model.Point{Lng: sumX / float64(n), Lat: sumY / float64(n)}, true
	}
	area /= 2
	return model.Point{Lng: cx / (6 * area), Lat: cy / (6 * area)}, true
}
