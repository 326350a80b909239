package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/campuswriters/go-market-backend/internal/config"
	"github.com/campuswriters/go-market-backend/internal/domain"
	"github.com/campuswriters/go-market-backend/internal/http/middleware"
	"github.com/campuswriters/go-market-backend/internal/repo"
	"github.com/campuswriters/go-market-backend/internal/secrets"
)

func init() { gin.SetMode(gin.TestMode) }

func testConfig() config.Config {
	return config.Config{
		Port:        "0",
		GinMode:     gin.TestMode,
		APIBasePath: "/api/v1",
		RateRPS:     1000,
		RateBurst:   1000,
		Market: config.MarketConfig{
			RetentionWindow: 7 * 24 * time.Hour,
			CostUnit:        50,
			SweepSpec:       "0 0 3 * * *",
		},
		IdempotencyTTL: time.Hour,
	}
}

func newTestEngine(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 7)
	}
	vault, err := secrets.New(key)
	if err != nil {
		t.Fatalf("vault: %v", err)
	}

	engine := gin.New()
	RegisterRoutes(engine, db, vault, testConfig())
	return engine, db
}

func doJSON(t *testing.T, e *gin.Engine, method, path string, body any, identity map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range identity {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func asClient(sub string) map[string]string {
	return map[string]string{
		middleware.HeaderSubject: sub,
		middleware.HeaderRole:    domain.RoleClient,
		middleware.HeaderName:    "Client " + sub,
	}
}

func asWriter(sub string) map[string]string {
	return map[string]string{
		middleware.HeaderSubject: sub,
		middleware.HeaderRole:    domain.RoleWriter,
		middleware.HeaderName:    "Writer " + sub,
	}
}

func validRequestBody() map[string]any {
	return map[string]any{
		"course_name":     "Microeconomics",
		"course_code":     "ECON201",
		"assignment_type": "essay",
		"num_pages":       6,
		"deadline":        time.Now().Add(96 * time.Hour).Format(time.RFC3339),
		"estimated_cost":  230,
	}
}

func TestHealthAndMetricsExposed(t *testing.T) {
	e, _ := newTestEngine(t)

	if w := doJSON(t, e, http.MethodGet, "/health", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if w := doJSON(t, e, http.MethodGet, "/metrics", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
}

func TestGuestSeesSamplesAndCannotMutate(t *testing.T) {
	e, _ := newTestEngine(t)

	w := doJSON(t, e, http.MethodGet, "/api/v1/requests", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("guest list status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "[Sample]") {
		t.Fatalf("guest listing not sample data: %s", w.Body.String())
	}

	w = doJSON(t, e, http.MethodPost, "/api/v1/requests", validRequestBody(), nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("guest create status = %d, want 401", w.Code)
	}
	if !strings.Contains(w.Body.String(), "sign_in_required") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestCreateListAcceptFlow(t *testing.T) {
	e, _ := newTestEngine(t)
	client := asClient("c1")
	writer := asWriter("w1")

	// Client stores a contact channel first.
	w := doJSON(t, e, http.MethodPut, "/api/v1/me/contact", map[string]any{"contact": "+14155550123"}, client)
	if w.Code != http.StatusNoContent {
		t.Fatalf("set contact status = %d: %s", w.Code, w.Body.String())
	}

	// Create.
	w = doJSON(t, e, http.MethodPost, "/api/v1/requests", validRequestBody(), client)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID            string `json:"id"`
		EstimatedCost int    `json:"estimated_cost"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.EstimatedCost != 250 {
		t.Fatalf("cost = %d, want rounded 250", created.EstimatedCost)
	}

	// Signed-in listing shows the real row.
	w = doJSON(t, e, http.MethodGet, "/api/v1/requests", nil, writer)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), created.ID) {
		t.Fatalf("list status = %d body = %s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("ETag missing on signed-in listing")
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests", nil)
	for k, v := range writer {
		req.Header.Set(k, v)
	}
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("conditional get status = %d, want 304", rec.Code)
	}

	// Accept reveals the contact.
	w = doJSON(t, e, http.MethodPost, "/api/v1/requests/"+created.ID+"/accept", nil, writer)
	if w.Code != http.StatusOK {
		t.Fatalf("accept status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "+14155550123") {
		t.Fatalf("contact not disclosed: %s", w.Body.String())
	}

	// A second writer loses with 409.
	w = doJSON(t, e, http.MethodPost, "/api/v1/requests/"+created.ID+"/accept", nil, asWriter("w2"))
	if w.Code != http.StatusConflict {
		t.Fatalf("second accept status = %d, want 409", w.Code)
	}

	// Client cannot accept anything.
	w = doJSON(t, e, http.MethodPost, "/api/v1/requests/"+created.ID+"/accept", nil, client)
	if w.Code != http.StatusForbidden {
		t.Fatalf("client accept status = %d, want 403", w.Code)
	}
}

func TestWriterCannotPostRequests(t *testing.T) {
	e, db := newTestEngine(t)
	writer := asWriter("w-posting")

	w := doJSON(t, e, http.MethodPost, "/api/v1/requests", validRequestBody(), writer)
	if w.Code != http.StatusForbidden {
		t.Fatalf("writer create status = %d, want 403: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "forbidden") {
		t.Fatalf("body = %s", w.Body.String())
	}

	var count int64
	if err := db.Model(&domain.AssignmentRequest{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("request rows = %d, want 0", count)
	}
}

func TestCreateIsIdempotentAcrossRetries(t *testing.T) {
	e, db := newTestEngine(t)
	client := asClient("c-idem")
	body := validRequestBody()

	req1 := doJSON(t, e, http.MethodPost, "/api/v1/requests", body, withHeader(client, middleware.HeaderIdempotencyKey, "k-1"))
	if req1.Code != http.StatusCreated {
		t.Fatalf("first status = %d: %s", req1.Code, req1.Body.String())
	}
	req2 := doJSON(t, e, http.MethodPost, "/api/v1/requests", body, withHeader(client, middleware.HeaderIdempotencyKey, "k-1"))
	if req2.Code != http.StatusOK {
		t.Fatalf("replay status = %d, want 200", req2.Code)
	}

	var count int64
	if err := db.Model(&domain.AssignmentRequest{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("request rows = %d, want 1", count)
	}
}

func TestDeleteAuthorization(t *testing.T) {
	e, _ := newTestEngine(t)
	owner := asClient("owner")
	stranger := asClient("stranger")

	w := doJSON(t, e, http.MethodPost, "/api/v1/requests", validRequestBody(), owner)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d", w.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	if w := doJSON(t, e, http.MethodDelete, "/api/v1/requests/"+created.ID, nil, stranger); w.Code != http.StatusForbidden {
		t.Fatalf("stranger delete status = %d, want 403", w.Code)
	}
	if w := doJSON(t, e, http.MethodDelete, "/api/v1/requests/"+uuid.NewString(), nil, owner); w.Code != http.StatusNotFound {
		t.Fatalf("missing delete status = %d, want 404", w.Code)
	}
	if w := doJSON(t, e, http.MethodDelete, "/api/v1/requests/"+created.ID, nil, owner); w.Code != http.StatusOK {
		t.Fatalf("owner delete status = %d, want 200", w.Code)
	}
}

func TestRatingFlowUpdatesAggregates(t *testing.T) {
	e, _ := newTestEngine(t)
	client := asClient("rater")
	writer := asWriter("rated")

	w := doJSON(t, e, http.MethodPost, "/api/v1/requests", validRequestBody(), client)
	var created struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	w = doJSON(t, e, http.MethodPost, "/api/v1/requests/"+created.ID+"/accept", nil, writer)
	if w.Code != http.StatusOK {
		t.Fatalf("accept: %d", w.Code)
	}
	var accepted struct {
		ClientID string `json:"client_id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &accepted)

	// The writer's local user id comes from the acceptance listing; rate via
	// the counterparty id returned on the assignment.
	w = doJSON(t, e, http.MethodPost, "/api/v1/requests/"+created.ID+"/rating", map[string]any{
		"rated_id": accepted.ClientID,
		"score":    5,
		"comment":  "clear brief",
	}, writer)
	if w.Code != http.StatusCreated {
		t.Fatalf("rating status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, e, http.MethodGet, "/api/v1/users/"+accepted.ClientID+"/ratings", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list ratings status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"total_ratings":1`) {
		t.Fatalf("aggregates missing: %s", w.Body.String())
	}

	// Outsider cannot rate.
	w = doJSON(t, e, http.MethodPost, "/api/v1/requests/"+created.ID+"/rating", map[string]any{
		"rated_id": accepted.ClientID,
		"score":    1,
	}, asWriter("outsider"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("outsider rating status = %d, want 403", w.Code)
	}
}

func TestProfileEndpoints(t *testing.T) {
	e, _ := newTestEngine(t)
	writer := asWriter("pw")

	w := doJSON(t, e, http.MethodPut, "/api/v1/me/portfolio", map[string]any{
		"sample_url":  "https://samples.example.com/1.pdf",
		"description": "STEM lab reports",
	}, writer)
	if w.Code != http.StatusOK {
		t.Fatalf("portfolio status = %d: %s", w.Code, w.Body.String())
	}
	var pf struct {
		WriterID string `json:"writer_id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &pf)

	w = doJSON(t, e, http.MethodGet, "/api/v1/users/"+pf.WriterID, nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "portfolio") {
		t.Fatalf("profile status = %d body = %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "contact") {
		t.Fatalf("profile leaks contact fields: %s", w.Body.String())
	}

	if w := doJSON(t, e, http.MethodPut, "/api/v1/me/status", map[string]any{"status": "busy"}, writer); w.Code != http.StatusNoContent {
		t.Fatalf("status update = %d", w.Code)
	}
	if w := doJSON(t, e, http.MethodPut, "/api/v1/me/status", map[string]any{"status": "away"}, writer); w.Code != http.StatusBadRequest {
		t.Fatalf("bad status update = %d", w.Code)
	}
}

func TestUnknownRouteEnvelope(t *testing.T) {
	e, _ := newTestEngine(t)
	w := doJSON(t, e, http.MethodGet, "/api/v1/nope", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"code":"not_found"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func withHeader(m map[string]string, k, v string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for kk, vv := range m {
		out[kk] = vv
	}
	out[k] = v
	return out
}
