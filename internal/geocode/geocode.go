package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/freedom_case_2/fire-router/internal/geo"
	"github.com/freedom_case_2/fire-router/internal/models"
)

var ErrNotFound = errors.New("geocode not found")

type Result struct {
	Coordinates models.Coordinates
	DisplayName string
	Confidence  float64
}

type Geocoder interface {
	Geocode(ctx context.Context, query string) (Result, error)
}

func BuildQuery(country string, city string, address string) string {
	parts := []string{}
	for _, p := range []string{country, city, address} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// ShouldGeocode reports whether an office needs a lookup: it has no
// resolvable coordinates, or force is set and it is not in the canonical
// table.
func ShouldGeocode(office models.Office, ix geo.Index, force bool) bool {
	if ix.IsCanonical(office) {
		return false
	}
	if force {
		return true
	}
	_, ok := ix.CoordinatesOf(office)
	return !ok
}
