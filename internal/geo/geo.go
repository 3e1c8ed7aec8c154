package geo

import (
	"math"
	"strings"

	"github.com/freedom_case_2/fire-router/internal/models"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the haversine great-circle distance between two points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	lat1R := degreesToRadians(lat1)
	lat2R := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1R)*math.Cos(lat2R)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Between is DistanceKm for two coordinate values.
func Between(a, b models.Coordinates) float64 {
	return DistanceKm(a.Lat, a.Lon, b.Lat, b.Lon)
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}

// OfficeCoordinates is the canonical location of every office, keyed by
// display name. It wins over whatever coordinates an office row carries.
var OfficeCoordinates = map[string]models.Coordinates{
	"Актау":            {Lat: 43.6520, Lon: 51.2100},
	"Актобе":           {Lat: 50.2797, Lon: 57.2074},
	"Алматы":           {Lat: 43.2389, Lon: 76.8897},
	"Астана":           {Lat: 51.1801, Lon: 71.4460},
	"Атырау":           {Lat: 47.1066, Lon: 51.9146},
	"Караганда":        {Lat: 49.8047, Lon: 73.1094},
	"Кокшетау":         {Lat: 53.2836, Lon: 69.3962},
	"Костанай":         {Lat: 53.2147, Lon: 63.6265},
	"Кызылорда":        {Lat: 44.8490, Lon: 65.5074},
	"Павлодар":         {Lat: 52.2867, Lon: 76.9677},
	"Петропавловск":    {Lat: 54.8749, Lon: 69.1586},
	"Тараз":            {Lat: 42.9002, Lon: 71.3784},
	"Уральск":          {Lat: 51.2337, Lon: 51.3697},
	"Усть-Каменогорск": {Lat: 49.9488, Lon: 82.6271},
	"Шымкент":          {Lat: 42.3170, Lon: 69.5963},
}

// Index resolves office coordinates. The zero value uses OfficeCoordinates.
type Index struct {
	Canonical map[string]models.Coordinates
}

// CoordinatesOf prefers the canonical table, then the office's stored
// coordinates. ok is false when neither is known.
func (ix Index) CoordinatesOf(office models.Office) (models.Coordinates, bool) {
	table := ix.Canonical
	if table == nil {
		table = OfficeCoordinates
	}
	if c, ok := table[strings.TrimSpace(office.Name)]; ok {
		return c, true
	}
	if office.Coordinates != nil {
		return *office.Coordinates, true
	}
	return models.Coordinates{}, false
}

// DistanceToOffice returns +Inf when the office has no coordinates.
func (ix Index) DistanceToOffice(from models.Coordinates, office models.Office) float64 {
	c, ok := ix.CoordinatesOf(office)
	if !ok {
		return math.Inf(1)
	}
	return Between(from, c)
}

// IsCanonical reports whether the office is covered by the canonical table.
func (ix Index) IsCanonical(office models.Office) bool {
	table := ix.Canonical
	if table == nil {
		table = OfficeCoordinates
	}
	_, ok := table[strings.TrimSpace(office.Name)]
	return ok
}
