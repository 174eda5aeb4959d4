package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-hub-api/internal/models"
	"github.com/noah-isme/student-hub-api/internal/service"
	appErrors "github.com/noah-isme/student-hub-api/pkg/errors"
)

type stubResolver struct {
	users map[string]*models.User
	err   error
	seen  string
}

func (s *stubResolver) Resolve(_ context.Context, token string) (*models.User, error) {
	s.seen = token
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[token]
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	return user, nil
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []models.AuditLog
	err  error
}

func (r *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return r.err
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newProtectedRouter(resolver principalResolver, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWT(resolver)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		principal := Principal(c)
		c.JSON(http.StatusOK, gin.H{"id": principal.ID, "logged_as": c.GetString("principal_id")})
	})
	r.GET("/protected/:id", handlers...)
	return r
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestJWTMissingHeader(t *testing.T) {
	r := newProtectedRouter(&stubResolver{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected/x", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "not authenticated", decodeError(t, rec).Error.Message)
}

func TestJWTMalformedHeader(t *testing.T) {
	resolver := &stubResolver{}
	r := newProtectedRouter(resolver)

	for _, header := range []string{"Basic abc", "Bearer", "Bearer   "} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected/x", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Error.Code)
	}
	assert.Empty(t, resolver.seen)
}

func TestJWTResolvesPrincipal(t *testing.T) {
	resolver := &stubResolver{users: map[string]*models.User{
		"good-token": {ID: "user-1", Role: models.RoleStudent},
	}}
	r := newProtectedRouter(resolver)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected/x", nil)
	req.Header.Set("Authorization", "bearer good-token")
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "good-token", resolver.seen)
	assert.JSONEq(t, `{"id":"user-1","logged_as":"user-1"}`, rec.Body.String())
}

func TestJWTPropagatesResolverError(t *testing.T) {
	r := newProtectedRouter(&stubResolver{err: appErrors.Clone(appErrors.ErrUnauthorized, "token expired")})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected/x", nil)
	req.Header.Set("Authorization", "Bearer stale")
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token expired", decodeError(t, rec).Error.Message)
}

func TestRequireRoleIsExact(t *testing.T) {
	resolver := &stubResolver{users: map[string]*models.User{
		"faculty": {ID: "f-1", Role: models.RoleFaculty},
		"admin":   {ID: "a-1", Role: models.RoleAdmin},
		"student": {ID: "s-1", Role: models.RoleStudent},
	}}
	r := newProtectedRouter(resolver, RequireRole(models.RoleFaculty))

	cases := map[string]int{
		"faculty": http.StatusOK,
		"admin":   http.StatusForbidden,
		"student": http.StatusForbidden,
	}
	for token, want := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected/x", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, token)
	}
}

func TestRequireRoleWithoutPrincipal(t *testing.T) {
	r := gin.New()
	r.GET("/", RequireRole(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	recorder := &recordingAudit{}
	resolver := &stubResolver{users: map[string]*models.User{"t": {ID: "faculty-1", Role: models.RoleFaculty}}}
	r := newProtectedRouter(resolver, Audit(recorder, zap.NewNop(), models.AuditActionActivityApprove, "activity"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected/act-9", nil)
	req.Header.Set("Authorization", "Bearer t")
	req.Header.Set("User-Agent", "hub-test")
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, recorder.logs, 1)
	entry := recorder.logs[0]
	assert.Equal(t, models.AuditActionActivityApprove, entry.Action)
	assert.Equal(t, "activity", entry.Resource)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "faculty-1", *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "act-9", *entry.ResourceID)
	assert.Equal(t, "hub-test", entry.UserAgent)
	assert.Contains(t, entry.NewValues, `"status":200`)
}

func TestAuditSkipsFailures(t *testing.T) {
	recorder := &recordingAudit{}
	r := gin.New()
	r.PUT("/items/:id", Audit(recorder, nil, "X", "item"), func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/items/1", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, recorder.logs)
}

func TestAuditStoreFailureDoesNotAffectResponse(t *testing.T) {
	recorder := &recordingAudit{err: errors.New("db down")}
	r := gin.New()
	r.POST("/items", Audit(recorder, zap.NewNop(), "X", "item"), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, recorder.logs, 1)
}

func TestMetricsLabelsUnmatchedRoutes(t *testing.T) {
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/known", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/known", "/missing-1", "/missing-2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, uint64(3), metrics.Snapshot().RequestsTotal)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `path="unmatched"`)
	assert.Contains(t, rec.Body.String(), `path="/known"`)
}

func TestResponseMetaCarriesCacheFlag(t *testing.T) {
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, ExtractMeta(c))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
}
