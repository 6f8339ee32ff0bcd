package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/reticula/pkg/pipeline"
)

func TestRecorder_Hooks(t *testing.T) {
	r := New()
	p := pipeline.New(pipeline.WithHooks(r.Hooks()))

	_, err := p.Infer(context.Background(), "((A,B),(C,D));((A,C),(B,D));")
	require.NoError(t, err)
	_, err = p.Infer(context.Background(), "(A,B")
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.stages.WithLabelValues("parse", "ok"))+
		testutil.ToFloat64(r.stages.WithLabelValues("parse", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stages.WithLabelValues("parse", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stages.WithLabelValues("root", "ok")))
	assert.Zero(t, testutil.ToFloat64(r.stages.WithLabelValues("root", "error")))
}

func TestRecorder_Cache(t *testing.T) {
	r := New()
	r.ObserveCache(true)
	r.ObserveCache(false)
	r.ObserveCache(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.cache.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cache.WithLabelValues("miss")))
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.ObserveCache(true)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `reticula_cache_requests_total{result="hit"} 1`)
}
