package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposure(t *testing.T) {
	ObserveModelBuild("popularity", time.Now().Add(-50*time.Millisecond))
	IncRecommendation("popular")
	IncRecommendationError("similar_users", "no_text")
	ObserveHTTP("/recommend", http.StatusOK, time.Now())
	IncCommandRun("serve")
	IncCommandError("serve")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		"starling_model_builds_total",
		"starling_model_build_duration_seconds",
		"starling_recommendations_total",
		"starling_recommendation_errors_total",
		"starling_http_requests_total",
		"starling_http_request_duration_seconds",
		"starling_command_runs_total",
		"starling_command_errors_total",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metric %s in body", m)
		}
	}
}
