package analysis

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/contextlens/core/internal/middleware"
	"github.com/contextlens/core/internal/models"
	"github.com/contextlens/core/internal/pkg/kv"
	"github.com/contextlens/core/internal/pkg/quota"
	"github.com/contextlens/core/internal/pkg/verdictcache"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, limit int) (*gin.Engine, *fakeJudge) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := kv.NewMemory()
	judge := &fakeJudge{}
	orch := New(
		judge,
		&fakeVision{},
		&fakeSearcher{},
		verdictcache.New(store, time.Hour, zap.NewNop()),
		quota.New(store, limit, zap.NewNop()),
		nil,
		zap.NewNop(),
	)

	r := gin.New()
	r.Use(middleware.Scope())
	NewHandler(orch).RegisterRoutes(r.Group("/api/v1"))
	return r, judge
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerQuick(t *testing.T) {
	r, _ := newTestRouter(t, 10)

	w := doJSON(r, http.MethodPost, "/api/v1/analysis/quick", `{"id":"p1","text":"a claim","author":"x"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var v models.QuickVerdict
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, models.RatingAmber, v.Overall)
}

func TestHandlerQuickRequiresText(t *testing.T) {
	r, judge := newTestRouter(t, 10)

	w := doJSON(r, http.MethodPost, "/api/v1/analysis/quick", `{"id":"p1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, judge.quickCalls)
}

func TestHandlerQuickQuotaExceeded(t *testing.T) {
	r, _ := newTestRouter(t, 1)

	w := doJSON(r, http.MethodPost, "/api/v1/analysis/quick", `{"text":"first claim"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/analysis/quick", `{"text":"second different claim"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var envelope struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "quota_exceeded", envelope.Error)
}

func TestHandlerDeep(t *testing.T) {
	r, _ := newTestRouter(t, 10)

	w := doJSON(r, http.MethodPost, "/api/v1/analysis/deep",
		`{"id":"p1","text":"a claim","commentExcerpts":["nah"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var v models.DeepVerdict
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.True(t, v.Complete())
	assert.NotNil(t, v.CommentAnalysis)
}

func TestHandlerQuota(t *testing.T) {
	r, _ := newTestRouter(t, 10)

	w := doJSON(r, http.MethodPost, "/api/v1/analysis/quick", `{"text":"a claim"}`)
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/quota", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var st QuotaStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 10, st.Limit)
	assert.Equal(t, 1, st.Used)
	assert.Equal(t, 9, st.Remaining)
}
