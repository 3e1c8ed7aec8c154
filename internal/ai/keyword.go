package ai

import (
	"context"
	"strings"
	"time"

	"github.com/freedom_case_2/fire-router/internal/models"
)

// KeywordAdapter is a deterministic classifier driven by keyword lists. It
// never returns an error and never produces coordinates.
type KeywordAdapter struct {
	ModelVersion string
}

var (
	kazakhMarkers  = []string{"сіз", "өтінемін", "қате", "көмек", "рахмет", "жоқ", "болады"}
	englishMarkers = []string{"please", "help", "error", "account", "transfer", "unable", "issue"}
)

type keywordRule struct {
	words     []string
	typ       string
	sentiment string
	priority  int
	summary   string
}

// first matching rule wins
var keywordRules = []keywordRule{
	{[]string{"суд", "прокуратура", "адвокат", "иск", "court", "lawyer"},
		models.TypeClaim, "Legal Risk", 10, "Customer threatens legal action. Escalate to a senior specialist."},
	{[]string{"мошенник", "украли", "взлом", "несанкционированн", "fraud", "scam"},
		models.TypeFraud, "Negative", 9, "Suspected fraud. Forward to security."},
	{[]string{"верните", "возврат", "компенсация", "возместите", "refund"},
		models.TypeClaim, "Negative", 8, "Refund demand. Request transaction details."},
	{[]string{"недоволен", "ужасно", "безобразие", "отвратительно", "terrible"},
		models.TypeComplaint, "Negative", 6, "Negative service feedback. Listen and apologise."},
	{[]string{"не работает", "вылетает", "зависает", "ошибка", "crash", "error"},
		models.TypeAppFailure, "Neutral", 6, "Technical failure. Ask for OS version and reproduction steps."},
	{[]string{"смена", "изменить данные", "паспорт", "реквизиты"},
		models.TypeDataChange, "Neutral", 5, "Data change request. Ask for documents."},
	{[]string{"акция!", "выиграли", "поздравляем вы", "бесплатно!"},
		models.TypeSpam, "Neutral", 1, "Promotional mailing."},
}

func (k KeywordAdapter) Classify(ctx context.Context, t models.Ticket) (models.Classification, int64, error) {
	start := time.Now()
	lower := strings.ToLower(t.Description)

	c := models.Classification{
		Type:         models.TypeConsultation,
		Sentiment:    "Neutral",
		Priority:     5,
		Language:     detectLanguage(lower),
		Summary:      "Customer asks for a consultation. Clarify the details.",
		ModelVersion: k.ModelVersion,
	}
	if c.ModelVersion == "" {
		c.ModelVersion = "keyword-v1"
	}

	for _, r := range keywordRules {
		if containsAny(lower, r.words...) {
			c.Type, c.Sentiment, c.Priority, c.Summary = r.typ, r.sentiment, r.priority, r.summary
			break
		}
	}
	c.Recommendation = "Keyword analysis, verify manually."

	return Normalize(c, t), time.Since(start).Milliseconds(), nil
}

func detectLanguage(lower string) string {
	kz, en := 0, 0
	for _, w := range kazakhMarkers {
		if strings.Contains(lower, w) {
			kz++
		}
	}
	for _, w := range englishMarkers {
		if strings.Contains(lower, w) {
			en++
		}
	}
	switch {
	case kz >= 2:
		return models.LanguageKZ
	case en >= 2:
		return models.LanguageENG
	default:
		return models.LanguageRU
	}
}
