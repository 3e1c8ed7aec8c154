package routing

import (
	"strings"

	"github.com/freedom_case_2/fire-router/internal/models"
)

var defaultResolver = NewRegionResolver(nil)

// RegionResolver maps free-text region strings to offices through an alias
// table. With a fixed table and office list the result is stable; ties
// between aliases resolve to the first entry in table order.
type RegionResolver struct {
	aliases *AliasTable
}

// NewRegionResolver uses the built-in aliases when table is nil.
func NewRegionResolver(table *AliasTable) *RegionResolver {
	if table == nil {
		table = NewAliasTable(defaultAliases)
	}
	return &RegionResolver{aliases: table}
}

// Resolve returns nil when no alias matches or the target office is not in
// offices.
func (r *RegionResolver) Resolve(region string, offices []models.Office) *models.Office {
	name, ok := r.aliases.Lookup(normalizeRegion(region))
	if !ok {
		return nil
	}
	return officeByName(offices, name)
}

func officeByName(offices []models.Office, name string) *models.Office {
	name = strings.TrimSpace(name)
	for i := range offices {
		if strings.EqualFold(strings.TrimSpace(offices[i].Name), name) {
			return &offices[i]
		}
	}
	return nil
}
