package routing

import (
	"strings"

	"github.com/freedom_case_2/fire-router/internal/geo"
	"github.com/freedom_case_2/fire-router/internal/models"
)

const DefaultOfficeName = "Астана"

// Location is the locator's result: the primary office, the office ids
// whose managers form the initial pool, and the audit fields that go into
// the explanation.
type Location struct {
	Office              *models.Office
	Targets             []string
	Rule                models.LocationRule
	DistanceKm          *float64
	CustomerCoordinates *models.Coordinates
	OfficeCoordinates   *models.Coordinates
}

type Locator struct {
	Geo           geo.Index
	Regions       *RegionResolver
	DefaultOffice string
}

// Locate runs the cascade city name, GPS nearest, region alias, default.
// Offices are scanned in the order supplied; the first hit wins every tie.
func (l *Locator) Locate(ticket models.Ticket, cls models.Classification, offices []models.Office) Location {
	if len(offices) == 0 {
		return Location{}
	}

	if office := matchCity(ticket.City, offices); office != nil {
		zero := 0.0
		loc := l.located(office, models.RuleCityNameMatch)
		loc.DistanceKm = &zero
		return loc
	}

	if cls.Coordinates != nil {
		if office, dist := l.nearest(*cls.Coordinates, offices); office != nil {
			loc := l.located(office, models.RuleGPSNearest)
			loc.DistanceKm = &dist
			customer := *cls.Coordinates
			loc.CustomerCoordinates = &customer
			return loc
		}
	}

	if office := l.regions().Resolve(ticket.Region, offices); office != nil {
		return l.located(office, models.RuleRegionMatch)
	}

	name := l.DefaultOffice
	if strings.TrimSpace(name) == "" {
		name = DefaultOfficeName
	}
	office := officeByName(offices, name)
	if office == nil {
		office = &offices[0]
	}
	return l.located(office, models.RuleNoLocationDefault)
}

func (l *Locator) located(office *models.Office, rule models.LocationRule) Location {
	loc := Location{
		Office:  office,
		Targets: []string{office.ID},
		Rule:    rule,
	}
	if c, ok := l.Geo.CoordinatesOf(*office); ok {
		loc.OfficeCoordinates = &c
	}
	return loc
}

func (l *Locator) regions() *RegionResolver {
	if l.Regions == nil {
		return defaultResolver
	}
	return l.Regions
}

// nearest skips offices without coordinates; a later office must be strictly
// closer to replace the current best.
func (l *Locator) nearest(from models.Coordinates, offices []models.Office) (*models.Office, float64) {
	var (
		best   *models.Office
		bestKm float64
	)
	for i := range offices {
		c, ok := l.Geo.CoordinatesOf(offices[i])
		if !ok {
			continue
		}
		d := geo.Between(from, c)
		if best == nil || d < bestKm {
			best = &offices[i]
			bestKm = d
		}
	}
	return best, bestKm
}

func matchCity(city string, offices []models.Office) *models.Office {
	c := strings.ToLower(strings.TrimSpace(city))
	if c == "" {
		return nil
	}
	for i := range offices {
		name := strings.ToLower(strings.TrimSpace(offices[i].Name))
		if name == "" {
			continue
		}
		if name == c || strings.Contains(c, name) || strings.Contains(name, c) {
			return &offices[i]
		}
	}
	return nil
}
