package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type staticValidator map[string]*models.JWTClaims

func (v staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type auditSink struct {
	logs []*models.AuditLog
}

func (a *auditSink) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type observation struct {
	path   string
	status int
}

type observerSpy struct {
	seen []observation
}

func (o *observerSpy) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.seen = append(o.seen, observation{path: path, status: status})
}

func newRouter(validator TokenValidator, audit AuditWriter, observer RequestObserver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(observer))
	protected := r.Group("/api", JWT(validator))
	protected.GET("/admin", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	protected.GET("/files", Audit(audit, models.AuditActionDocumentDownload, "document"), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func serve(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndRoles(t *testing.T) {
	validator := staticValidator{
		"admin":   {UserID: "a1", Role: models.RoleAdmin},
		"student": {UserID: "s1", Role: models.RoleStudent},
	}
	r := newRouter(validator, nil, nil)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/api/admin", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/api/admin", "forged").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, "/api/admin", "student").Code)
	assert.Equal(t, http.StatusOK, serve(r, "/api/admin", "admin").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
	req.Header.Set("Authorization", "Token admin")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuditRecordsSuccessfulReads(t *testing.T) {
	sink := &auditSink{}
	r := newRouter(staticValidator{"student": {UserID: "s1", Role: models.RoleStudent}}, sink, nil)

	require.Equal(t, http.StatusOK, serve(r, "/api/files", "student").Code)
	require.Len(t, sink.logs, 1)
	assert.Equal(t, models.AuditActionDocumentDownload, sink.logs[0].Action)
	require.NotNil(t, sink.logs[0].UserID)
	assert.Equal(t, "s1", *sink.logs[0].UserID)

	serve(r, "/api/files", "")
	assert.Len(t, sink.logs, 1)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	spy := &observerSpy{}
	r := newRouter(staticValidator{}, nil, spy)

	serve(r, "/api/admin", "")
	serve(r, "/nowhere", "")

	require.Len(t, spy.seen, 2)
	assert.Equal(t, observation{path: "/api/admin", status: http.StatusUnauthorized}, spy.seen[0])
	assert.Equal(t, observation{path: "unmatched", status: http.StatusNotFound}, spy.seen[1])
}
