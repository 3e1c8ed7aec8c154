package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/freedom_case_2/fire-router/internal/ai"
	"github.com/freedom_case_2/fire-router/internal/config"
	"github.com/freedom_case_2/fire-router/internal/http/handlers"
	"github.com/freedom_case_2/fire-router/internal/metrics"
	"github.com/freedom_case_2/fire-router/internal/routing"
	"github.com/freedom_case_2/fire-router/internal/service"
	"github.com/freedom_case_2/fire-router/internal/sqlitedb"
)

func TestRouter(t *testing.T) {
	store, err := sqlitedb.Open(context.Background(), filepath.Join(t.TempDir(), "fire.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	collector := metrics.NewPrometheus(reg, "fire")
	h := &handlers.Handler{
		Store: store,
		Processing: &service.ProcessingService{
			Store:      store,
			Classifier: ai.KeywordAdapter{},
			Engine:     routing.NewEngine(routing.Options{Logger: zerolog.Nop()}),
			Metrics:    collector,
			Logger:     zerolog.Nop(),
		},
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
	}
	r := Router(config.Config{Env: "dev", AdminKey: "k", CORSAllowed: "*"}, h, reg, zerolog.Nop())

	cases := []struct {
		method, path, key string
		want              int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/api/offices", "", http.StatusOK},
		{http.MethodGet, "/api/stats", "", http.StatusOK},
		{http.MethodPost, "/api/process", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/process", "k", http.StatusOK},
		{http.MethodPost, "/api/admin/counter/reset", "wrong", http.StatusUnauthorized},
		{http.MethodPost, "/api/admin/counter/reset", "k", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.key != "" {
			req.Header.Set("X-Admin-Key", tc.key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.want, w.Code, w.Body.String())
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "fire_last_batch_tickets") {
		t.Fatalf("metrics output missing collector: %s", w.Body.String())
	}
}
