package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/freedom_case_2/fire-router/internal/ai"
	"github.com/freedom_case_2/fire-router/internal/models"
	"github.com/freedom_case_2/fire-router/internal/routing"
	"github.com/freedom_case_2/fire-router/internal/service"
	"github.com/freedom_case_2/fire-router/internal/sqlitedb"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlitedb.Open(context.Background(), filepath.Join(t.TempDir(), "fire.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := &Handler{
		Store: store,
		Processing: &service.ProcessingService{
			Store:      store,
			Classifier: ai.KeywordAdapter{},
			Engine:     routing.NewEngine(routing.Options{Logger: zerolog.Nop()}),
			Logger:     zerolog.Nop(),
		},
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
	}

	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.GET("/api/offices", h.OfficesList)
	r.GET("/api/managers", h.ManagersList)
	r.GET("/api/assignments", h.AssignmentsList)
	r.GET("/api/assignments/:ticket_id", h.AssignmentDetails)
	r.GET("/api/stats", h.Stats)
	r.POST("/api/offices", h.UpsertOffices)
	r.POST("/api/managers", h.UpsertManagers)
	r.POST("/api/tickets", h.SubmitTickets)
	r.POST("/api/process", h.Process)
	r.POST("/api/route", h.Route)
	r.POST("/api/debug/route", h.DebugRoute)
	r.POST("/api/admin/counter/reset", h.ResetCounter)
	r.POST("/api/admin/workloads/restore", h.RestoreWorkloads)
	r.POST("/api/admin/offices/geocode", h.GeocodeOffices)
	r.POST("/api/admin/reset", h.ResetAll)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func seedDirectory(t *testing.T, r *gin.Engine) {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/offices", gin.H{"offices": []gin.H{
		{"id": "o-ast", "name": "Астана"},
		{"id": "o-alm", "name": "Алматы"},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/managers", gin.H{"managers": []gin.H{
		{"id": "a1", "full_name": "Айгуль", "position": models.PositionSpecialist, "office_id": "o-alm"},
		{"id": "a2", "full_name": "Бауыржан", "position": models.PositionSeniorSpecialist, "office_id": "o-alm", "skills": []string{"VIP"}},
		{"id": "k1", "full_name": "Камила", "position": models.PositionSpecialist, "office_id": "o-ast", "skills": []string{"KZ"}, "workload": 1},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDirectoryEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/offices", nil)
	require.JSONEq(t, `{"items":[]}`, w.Body.String())

	seedDirectory(t, r)

	offices := decode[struct{ Items []models.Office }](t, do(t, r, http.MethodGet, "/api/offices", nil))
	require.Len(t, offices.Items, 2)

	managers := decode[struct{ Items []models.Manager }](t, do(t, r, http.MethodGet, "/api/managers?office_id=o-alm&skill=vip", nil))
	require.Len(t, managers.Items, 1)
	require.Equal(t, "a2", managers.Items[0].ID)

	w = do(t, r, http.MethodPost, "/api/managers", gin.H{"managers": []gin.H{
		{"id": "x", "full_name": "X", "position": models.PositionSpecialist, "office_id": "o-alm", "skills": []string{"FR"}},
	}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestProcessFlow(t *testing.T) {
	r := newTestRouter(t)
	seedDirectory(t, r)

	w := do(t, r, http.MethodPost, "/api/tickets", gin.H{"tickets": []gin.H{
		{"id": "t1", "segment": "Mass", "city": "Алматы", "description": "Вопрос по тарифу", "created_at": "2025-03-01T09:00:00Z"},
		{"id": "t2", "segment": "VIP", "city": "Алматы", "description": "Хочу узнать лимит", "created_at": "2025-03-01T09:01:00Z"},
		{"id": "t3", "segment": "Mass", "city": "Астана", "description": "Поздравляем вы выиграли приз", "created_at": "2025-03-01T09:02:00Z"},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.JSONEq(t, `{"received":3,"inserted":3}`, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/process", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sum := decode[service.RunSummary](t, w)
	require.Equal(t, 3, sum.Routed)
	require.Equal(t, 1, sum.Outcomes[models.OutcomeSpamRejected])
	require.NotEmpty(t, sum.RunID)

	rec := decode[models.AssignmentRecord](t, do(t, r, http.MethodGet, "/api/assignments/t1", nil))
	require.Equal(t, "a1", *rec.ManagerID)
	require.Equal(t, string(models.OutcomeAssignedLocalRR), rec.Outcome)

	rec = decode[models.AssignmentRecord](t, do(t, r, http.MethodGet, "/api/assignments/t2", nil))
	require.Equal(t, "a2", *rec.ManagerID)
	require.Equal(t, 10, rec.Priority)

	var exp models.Explanation
	require.NoError(t, json.Unmarshal(rec.Explanation, &exp))
	require.Equal(t, []string{routing.FilterVIPSkill}, exp.FiltersApplied)
	require.Equal(t, models.RuleCityNameMatch, exp.LocationRule)

	rec = decode[models.AssignmentRecord](t, do(t, r, http.MethodGet, "/api/assignments/t3", nil))
	require.Nil(t, rec.ManagerID)
	require.Equal(t, string(models.OutcomeSpamRejected), rec.Outcome)

	list := decode[struct{ Items []models.AssignmentRecord }](t, do(t, r, http.MethodGet, "/api/assignments?outcome=spam_rejected", nil))
	require.Len(t, list.Items, 1)

	st := decode[service.Stats](t, do(t, r, http.MethodGet, "/api/stats", nil))
	require.Equal(t, 3, st.Total)
	require.Equal(t, 2, st.Assigned)
	require.Equal(t, 1, st.Spam)
	require.Equal(t, 100.0, st.VIPCompliance)

	w = do(t, r, http.MethodGet, "/api/assignments/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	sum = decode[service.RunSummary](t, do(t, r, http.MethodPost, "/api/process", nil))
	require.Zero(t, sum.Tickets)

	w = do(t, r, http.MethodPost, "/api/admin/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"items":[],"limit":50,"offset":0}`, do(t, r, http.MethodGet, "/api/assignments", nil).Body.String())
}

func TestRouteAndDryRun(t *testing.T) {
	r := newTestRouter(t)
	seedDirectory(t, r)

	body := gin.H{
		"ticket":         gin.H{"id": "t9", "city": "Астана", "description": "Сәлем"},
		"classification": gin.H{"type": "Консультация", "language": "KZ", "priority": 3},
	}
	w := do(t, r, http.MethodPost, "/api/route", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rec := decode[models.AssignmentRecord](t, w)
	require.Equal(t, "k1", *rec.ManagerID)
	require.Equal(t, models.LanguageKZ, rec.Language)

	w = do(t, r, http.MethodPost, "/api/route", body)
	require.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, "/api/debug/route", gin.H{
		"ticket": gin.H{"id": "t10", "city": "Алматы"},
		"classification": gin.H{
			"type": "Консультация", "language": "RU", "priority": 5,
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	d := decode[struct {
		Outcome     models.Outcome     `json:"outcome"`
		Explanation models.Explanation `json:"explanation"`
	}](t, w)
	require.Equal(t, models.OutcomeAssignedLocalRR, d.Outcome)
	require.Equal(t, "Алматы", d.Explanation.ResolvedOffice)

	w = do(t, r, http.MethodGet, "/api/assignments/t10", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, "/api/route", gin.H{
		"ticket":         gin.H{"id": "t11"},
		"classification": gin.H{"type": "Консультация", "latitude": 123.0, "longitude": 76.9},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminEndpoints(t *testing.T) {
	r := newTestRouter(t)
	seedDirectory(t, r)

	w := do(t, r, http.MethodPost, "/api/admin/counter/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/api/admin/workloads/restore", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"managers":3}`, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/admin/offices/geocode", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, r, http.MethodPost, "/api/tickets", gin.H{"tickets": []gin.H{{"segment": "Gold"}}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "VALIDATION_ERROR")

	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "INVALID_REQUEST")
}
