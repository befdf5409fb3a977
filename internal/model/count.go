package model

// CountByType partitions interventions by type. Only counts matter for effect
// sizing; identity and order are ignored.
func CountByType(interventions []Intervention) map[InterventionType]int {
	counts := make(map[InterventionType]int, len(InterventionTypes))
	for _, iv := range interventions {
		counts[iv.Type]++
	}
	return counts
}
