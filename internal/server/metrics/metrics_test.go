package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/blogd/internal/common"
	"github.com/dmitrijs2005/blogd/internal/server/authz"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve_CountsByKind(t *testing.T) {
	m := New()

	m.Observe(TransportHTTP, authz.OpGetPost, nil, time.Millisecond)
	m.Observe(TransportHTTP, authz.OpGetPost, common.ErrorNotFound, time.Millisecond)
	m.Observe(TransportGRPC, authz.OpLogin, common.ErrorRateLimited, time.Millisecond)
	m.Observe(TransportGRPC, authz.OpLogin, errors.New("boom"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("http", "GetPost", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("http", "GetPost", "NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("grpc", "Login", "INTERNAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("grpc", "Login")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("http", "GetPost")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.TrackBuckets(func() int { return 7 })
	m.Observe(TransportHTTP, authz.OpListPosts, nil, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "blogd_ratelimit_buckets 7")
	assert.Contains(t, string(body), `blogd_requests_total{kind="OK",operation="ListPosts",transport="http"} 1`)
}
