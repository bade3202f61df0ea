package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffPayloadsIgnoresVolatileFields(t *testing.T) {
	goBody := []byte(`{"data":{"metadata":{"generatedAt":"2026-10-14T12:00:00Z"},"data":{"overview":{"applications":4}}},"meta":{"request_id":"a","processing_time_ms":3}}`)
	legacyBody := []byte(`{"data":{"metadata":{"generatedAt":"2026-10-14T11:59:58Z"},"data":{"overview":{"applications":4}}},"meta":{"request_id":"b","processing_time_ms":41}}`)

	diffs, err := diffPayloads(goBody, legacyBody)
	require.NoError(t, err)
	assert.Empty(t, diffs)
}

func TestDiffPayloadsReportsPaths(t *testing.T) {
	goBody := []byte(`{"data":{"overview":{"applications":4,"messages":2},"funnel":[1,2]}}`)
	legacyBody := []byte(`{"data":{"overview":{"applications":5},"funnel":[1,3]}}`)

	diffs, err := diffPayloads(goBody, legacyBody)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"$.data.overview.applications",
		"$.data.overview.messages missing in legacy",
		"$.data.funnel[1]",
	}, diffs)
}

func TestCompareSendsBearerToken(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	res := compare(srv.Client(), srv.URL, srv.URL, target{Path: "reports/comprehensive", Token: "tok"})
	require.NoError(t, res.err)
	assert.True(t, res.ok())
	assert.Equal(t, []string{"Bearer tok", "Bearer tok"}, seen)
}
