package catalog

import "github.com/powdercast/powdercast/internal/models"

// locations is the static mountain catalog. Consumed read-only; the engine
// never mutates a descriptor.
var locations = []models.Location{
	{ID: "jackson-hole", Name: "Jackson Hole", Latitude: 43.5875, Longitude: -110.8279, ElevationFt: 10450, Timezone: "America/Denver", Region: models.RegionUS},
	{ID: "alta", Name: "Alta", Latitude: 40.5883, Longitude: -111.6358, ElevationFt: 10500, Timezone: "America/Denver", Region: models.RegionUS},
	{ID: "mammoth", Name: "Mammoth Mountain", Latitude: 37.6308, Longitude: -119.0326, ElevationFt: 11053, Timezone: "America/Los_Angeles", Region: models.RegionUS},
	{ID: "palisades", Name: "Palisades Tahoe", Latitude: 39.1969, Longitude: -120.2358, ElevationFt: 9050, Timezone: "America/Los_Angeles", Region: models.RegionUS},
	{ID: "steamboat", Name: "Steamboat", Latitude: 40.4572, Longitude: -106.8045, ElevationFt: 10568, Timezone: "America/Denver", Region: models.RegionUS},
	{ID: "crystal-mountain", Name: "Crystal Mountain", Latitude: 46.9282, Longitude: -121.5045, ElevationFt: 7012, Timezone: "America/Los_Angeles", Region: models.RegionUS},
	{ID: "stowe", Name: "Stowe", Latitude: 44.5303, Longitude: -72.7814, ElevationFt: 4395, Timezone: "America/New_York", Region: models.RegionUS},

	{ID: "whistler", Name: "Whistler Blackcomb", Latitude: 50.1163, Longitude: -122.9574, ElevationFt: 7494, Timezone: "America/Vancouver", Region: models.RegionCanada},
	{ID: "revelstoke", Name: "Revelstoke", Latitude: 50.9583, Longitude: -118.1636, ElevationFt: 7300, Timezone: "America/Vancouver", Region: models.RegionCanada},
	{ID: "lake-louise", Name: "Lake Louise", Latitude: 51.4419, Longitude: -116.1622, ElevationFt: 8650, Timezone: "America/Edmonton", Region: models.RegionCanada},

	{ID: "niseko", Name: "Niseko United", Latitude: 42.8622, Longitude: 140.6874, ElevationFt: 3839, Timezone: "Asia/Tokyo", Region: models.RegionJapan},
	{ID: "hakuba", Name: "Hakuba Valley", Latitude: 36.6983, Longitude: 137.8319, ElevationFt: 5925, Timezone: "Asia/Tokyo", Region: models.RegionJapan},
	{ID: "myoko", Name: "Myoko Kogen", Latitude: 36.8861, Longitude: 138.1931, ElevationFt: 4249, Timezone: "Asia/Tokyo", Region: models.RegionJapan},

	{ID: "chamonix", Name: "Chamonix", Latitude: 45.9237, Longitude: 6.8694, ElevationFt: 12605, Timezone: "Europe/Paris", Region: models.RegionEurope},
	{ID: "zermatt", Name: "Zermatt", Latitude: 46.0207, Longitude: 7.7491, ElevationFt: 12792, Timezone: "Europe/Zurich", Region: models.RegionEurope},
	{ID: "st-anton", Name: "St. Anton", Latitude: 47.1297, Longitude: 10.2685, ElevationFt: 9222, Timezone: "Europe/Vienna", Region: models.RegionEurope},
	{ID: "val-disere", Name: "Val d'Isère", Latitude: 45.4481, Longitude: 6.9808, ElevationFt: 11339, Timezone: "Europe/Paris", Region: models.RegionEurope},
}

// All returns the full location catalog.
func All() []models.Location {
	out := make([]models.Location, len(locations))
	copy(out, locations)
	return out
}

// ByID looks up one location.
func ByID(id string) (models.Location, bool) {
	for _, loc := range locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return models.Location{}, false
}
