package service

import "github.com/bookmapper/backend/models"

// NormalizeLocations flattens a book's stored locations into the API shape.
// Entries whose geo point is missing, has the wrong arity, or holds
// non-numeric coordinates are skipped, never surfaced as errors. The skipped
// count is returned so callers can observe the degradation.
func NormalizeLocations(locs []models.Location) ([]models.NormalizedLocation, int) {
	out := make([]models.NormalizedLocation, 0, len(locs))
	skipped := 0
	for _, loc := range locs {
		if loc.Geo == nil || len(loc.Geo.Coordinates) != 2 {
			skipped++
			continue
		}
		lng, okLng := asFloat(loc.Geo.Coordinates[0])
		lat, okLat := asFloat(loc.Geo.Coordinates[1])
		if !okLng || !okLat {
			skipped++
			continue
		}
		out = append(out, models.NormalizedLocation{
			Lat:       lat,
			Lng:       lng,
			PlaceName: loc.PlaceName,
			Country:   loc.Country,
		})
	}
	return out, skipped
}

// asFloat covers the numeric types the BSON and JSON decoders produce.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
