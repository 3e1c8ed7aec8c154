package ai

import (
	"context"
	"strings"

	"github.com/freedom_case_2/fire-router/internal/models"
)

// Classifier turns a ticket into a classification. The int64 is the call
// latency in milliseconds.
type Classifier interface {
	Classify(ctx context.Context, t models.Ticket) (models.Classification, int64, error)
}

const FallbackModelVersion = "fallback"

var ticketTypes = []string{
	models.TypeComplaint,
	models.TypeDataChange,
	models.TypeConsultation,
	models.TypeClaim,
	models.TypeAppFailure,
	models.TypeFraud,
	models.TypeSpam,
}

// Fallback is the neutral classification used when the classifier fails.
func Fallback() models.Classification {
	return models.Classification{
		Type:           models.TypeConsultation,
		Sentiment:      "Neutral",
		Priority:       5,
		Language:       models.LanguageRU,
		Summary:        "Classification failed, manual review required.",
		Recommendation: "Contact the customer to clarify the request.",
		ModelVersion:   FallbackModelVersion,
		Fallback:       true,
	}
}

// Normalize canonicalises type and language spellings, clamps priority and
// applies the post-classification rules for fraud, spam and legal threats.
func Normalize(c models.Classification, t models.Ticket) models.Classification {
	c.Type = normalizeType(c.Type)
	c.Language = normalizeLanguage(c.Language)
	c.Sentiment = normalizeSentiment(c.Sentiment)

	if c.Priority < 1 {
		c.Priority = 1
	}
	if c.Priority > 10 {
		c.Priority = 10
	}

	switch c.Type {
	case models.TypeFraud:
		c.Priority = max(c.Priority, 9)
	case models.TypeSpam:
		c.Priority = 1
	}

	desc := strings.ToLower(t.Description)
	if c.Sentiment == "Negative" && containsAny(desc, lawsuitKeywords...) {
		c.Priority = max(c.Priority, 8)
	}
	if t.Attachment != "" && strings.Contains(strings.ToLower(t.Attachment), "error") && c.Type != models.TypeSpam {
		c.Priority = min(10, c.Priority+1)
	}
	return c
}

var lawsuitKeywords = []string{"суд", "заявление в правоохранительные", "прокуратур", "иск", "адвокат"}

func normalizeType(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "complaint", "жалоба":
		return models.TypeComplaint
	case "consultation", "консультация":
		return models.TypeConsultation
	case "fraud", "мошеннические действия", "мошенничество":
		return models.TypeFraud
	case "change of data", "data change", "смена данных":
		return models.TypeDataChange
	case "claim", "претензия":
		return models.TypeClaim
	case "technical issue", "app failure", "неработоспособность приложения":
		return models.TypeAppFailure
	case "spam", "спам":
		return models.TypeSpam
	}
	for _, known := range ticketTypes {
		if strings.EqualFold(v, known) {
			return known
		}
	}
	return models.TypeConsultation
}

func normalizeLanguage(value string) string {
	v := strings.ToUpper(strings.TrimSpace(value))
	switch v {
	case "KZ", "KAZ", "KK", "KAZAKH":
		return models.LanguageKZ
	case "EN", "ENG", "ENGLISH":
		return models.LanguageENG
	default:
		return models.LanguageRU
	}
}

func normalizeSentiment(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "positive", "позитивный":
		return "Positive"
	case "negative", "негативный":
		return "Negative"
	case "legal risk":
		return "Legal Risk"
	default:
		return "Neutral"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
