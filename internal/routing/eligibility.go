package routing

import (
	"strings"

	"github.com/freedom_case_2/fire-router/internal/models"
)

// Filter tags, recorded in the explanation in this order.
const (
	FilterVIPSkill           = "VIP_skill"
	FilterDataChangePosition = "data_change_position"
	FilterKZLanguage         = "KZ_language"
	FilterENGLanguage        = "ENG_language"
)

// FilterEligible applies every hard rule whose guard holds for the ticket and
// returns the surviving managers in pool order plus the tags of the rules
// that fired. RU tickets get no language rule.
func FilterEligible(pool []*models.Manager, ticket models.Ticket, cls models.Classification) ([]*models.Manager, []string) {
	applied := []string{}
	out := pool

	if ticket.IsPremium() {
		out = filterManagers(out, func(m *models.Manager) bool {
			return m.HasSkill(models.SkillVIP)
		})
		applied = append(applied, FilterVIPSkill)
	}

	if strings.EqualFold(strings.TrimSpace(cls.Type), models.TypeDataChange) {
		out = filterManagers(out, func(m *models.Manager) bool {
			return strings.EqualFold(strings.TrimSpace(m.Position), models.PositionSeniorSpecialist)
		})
		applied = append(applied, FilterDataChangePosition)
	}

	switch strings.ToUpper(strings.TrimSpace(cls.Language)) {
	case models.LanguageKZ:
		out = filterManagers(out, func(m *models.Manager) bool {
			return m.HasSkill(models.SkillKZ)
		})
		applied = append(applied, FilterKZLanguage)
	case models.LanguageENG:
		out = filterManagers(out, func(m *models.Manager) bool {
			return m.HasSkill(models.SkillENG)
		})
		applied = append(applied, FilterENGLanguage)
	}

	if len(applied) == 0 {
		out = append([]*models.Manager(nil), pool...)
	}
	return out, applied
}

func filterManagers(managers []*models.Manager, keep func(*models.Manager) bool) []*models.Manager {
	out := make([]*models.Manager, 0, len(managers))
	for _, m := range managers {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func managersAt(managers []*models.Manager, officeID string) []*models.Manager {
	return filterManagers(managers, func(m *models.Manager) bool {
		return m.OfficeID == officeID
	})
}
