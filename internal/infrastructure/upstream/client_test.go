package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/scanwatch-service/internal/domain"
	"github.com/wms-platform/scanwatch-service/pkg/logging"
	"github.com/wms-platform/scanwatch-service/pkg/resilience"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	logConfig := logging.DefaultConfig("scanwatch-test")
	logConfig.Output = io.Discard
	logger := logging.New(logConfig)

	breaker := resilience.NewCircuitBreaker(
		resilience.DefaultCircuitBreakerConfig("test"),
		logger.Logger,
		nil,
	)

	return NewClient(&Config{BaseURL: baseURL, Timeout: 5 * time.Second}, breaker, logger, nil)
}

func TestLoginSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "EWR", r.PostFormValue("username"))
		assert.Equal(t, "pass", r.PostFormValue("password"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"upstream-token","token_type":"bearer"}`))
	}))
	defer server.Close()

	token, err := newTestClient(t, server.URL).Login(context.Background(), "EWR", "pass")

	require.NoError(t, err)
	assert.Equal(t, "upstream-token", token)
}

func TestLoginRejectedWithDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Login(context.Background(), "EWR", "wrong")

	te, ok := domain.AsTransient(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
	assert.Equal(t, "Incorrect username or password", te.Message)
}

func TestLoginUnparseableGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"bearer"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Login(context.Background(), "EWR", "pass")

	te, ok := domain.AsTransient(err)
	require.True(t, ok)
	assert.Contains(t, te.Message, "unparseable login response")
}

func TestFetchPageEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/scan-records/weekly", r.URL.Path)
		assert.Equal(t, "Bearer upstream-token", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "EWR", q.Get("warehouse"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "100", q.Get("page_size"))
		assert.Equal(t, domain.SortKey, q.Get("sort"))
		assert.Equal(t, "desc", q.Get("order"))
		assert.Equal(t, "false", q.Get("show_cancelled"))

		_, _ = w.Write([]byte(`{
			"data": [{"tracking_number":"TRK001","warehouse":"EWR"}],
			"page": 2, "page_size": 100, "total": 250, "total_pages": 3
		}`))
	}))
	defer server.Close()

	result, err := newTestClient(t, server.URL).FetchPage(context.Background(), "upstream-token", domain.PageQuery{
		Warehouse: "EWR",
		Page:      2,
		PageSize:  100,
	})

	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "TRK001", result.Records[0].TrackingNumber)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 250, result.Total)
	assert.Equal(t, 3, result.TotalPages)
}

func TestFetchPageBareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"tracking_number":"TRK001"},{"tracking_number":"TRK002"}]`))
	}))
	defer server.Close()

	result, err := newTestClient(t, server.URL).FetchPage(context.Background(), "tok", domain.PageQuery{
		Warehouse: "EWR",
		Page:      1,
		PageSize:  100,
	})

	require.NoError(t, err)
	assert.Len(t, result.Records, 2)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.TotalPages, "a single bare-array page spans one page")
}

func TestFetchPageItemsFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"tracking_number":"TRK001"}],"total":1}`))
	}))
	defer server.Close()

	result, err := newTestClient(t, server.URL).FetchPage(context.Background(), "tok", domain.PageQuery{
		Warehouse: "EWR",
		Page:      1,
		PageSize:  100,
	})

	require.NoError(t, err)
	assert.Len(t, result.Records, 1)
	assert.Equal(t, 1, result.TotalPages, "missing total_pages is derived from the total")
}

func TestFetchPageDerivedTotalPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[],"total":250}`))
	}))
	defer server.Close()

	result, err := newTestClient(t, server.URL).FetchPage(context.Background(), "tok", domain.PageQuery{
		Warehouse: "EWR",
		Page:      1,
		PageSize:  100,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, 100, result.PageSize, "missing page_size falls back to the query")
}

func TestFetchPageUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).FetchPage(context.Background(), "stale", domain.PageQuery{
		Warehouse: "EWR", Page: 1, PageSize: 100,
	})

	assert.Equal(t, domain.ErrSessionExpired, err)
}

func TestFetchPageServerErrorWithDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"database connection lost"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).FetchPage(context.Background(), "tok", domain.PageQuery{
		Warehouse: "EWR", Page: 1, PageSize: 100,
	})

	te, ok := domain.AsTransient(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.Equal(t, "database connection lost", te.Message)
	assert.False(t, te.Unreachable)
}

func TestFetchPageMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).FetchPage(context.Background(), "tok", domain.PageQuery{
		Warehouse: "EWR", Page: 1, PageSize: 100,
	})

	te, ok := domain.AsTransient(err)
	require.True(t, ok)
	assert.Zero(t, te.StatusCode)
}

func TestFetchPageWithoutRecordList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total":5}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).FetchPage(context.Background(), "tok", domain.PageQuery{
		Warehouse: "EWR", Page: 1, PageSize: 100,
	})

	te, ok := domain.AsTransient(err)
	require.True(t, ok)
	assert.Contains(t, te.Message, "no record list")
}

func TestFetchPageUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(t, server.URL).FetchPage(context.Background(), "tok", domain.PageQuery{
		Warehouse: "EWR", Page: 1, PageSize: 100,
	})

	te, ok := domain.AsTransient(err)
	require.True(t, ok)
	assert.True(t, te.Unreachable)
}

func TestCircuitOpenSurfacesAsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	query := domain.PageQuery{Warehouse: "EWR", Page: 1, PageSize: 100}

	// Trip the breaker with consecutive failures.
	for i := 0; i < int(resilience.DefaultFailureThreshold); i++ {
		_, _ = client.FetchPage(context.Background(), "tok", query)
	}

	_, err := client.FetchPage(context.Background(), "tok", query)

	te, ok := domain.AsTransient(err)
	require.True(t, ok)
	assert.True(t, te.Unreachable)
	assert.Contains(t, te.Message, "circuit is open")
}
