package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcwiz/appkit/table"
)

func dataServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/temp":
			fmt.Fprint(w, `[{"ts":1,"temp":20.5},{"ts":2,"temp":21.0}]`)
		case "/rh":
			fmt.Fprint(w, `[{"ts":1,"rh":60},{"ts":2,"rh":65}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	}))
}

func TestDataRequestTable(t *testing.T) {
	srv := dataServer(t)
	defer srv.Close()

	tab, err := newTestClient(srv.URL).DataRequestTable(context.Background(), http.MethodGet, "/temp")
	require.NoError(t, err)
	assert.Equal(t, 2, tab.Len())
	assert.Equal(t, []string{"temp", "ts"}, tab.Columns())
}

func TestDataParallelMerged(t *testing.T) {
	srv := dataServer(t)
	defer srv.Close()

	specs := []RequestSpec{
		{Method: http.MethodGet, URL: "/temp"},
		{Method: http.MethodGet, URL: "/rh"},
	}
	merged, err := newTestClient(srv.URL).DataParallelMerged(context.Background(), specs, "ts")
	require.NoError(t, err)
	assert.Equal(t, []string{"temp", "rh"}, merged.Columns())
	assert.Equal(t, 2, merged.Len())
	assert.Equal(t, 20.5, merged.Cell(0, "temp"))
	assert.Equal(t, 60.0, merged.Cell(0, "rh"))
}

func TestDataParallelMerged_Idempotent(t *testing.T) {
	srv := dataServer(t)
	defer srv.Close()

	c := newTestClient(srv.URL)
	specs := []RequestSpec{
		{Method: http.MethodGet, URL: "/temp"},
		{Method: http.MethodGet, URL: "/rh"},
	}
	tables, err := c.DataParallelTables(context.Background(), specs)
	require.NoError(t, err)

	first, err := table.Merge(tables, "ts")
	require.NoError(t, err)
	second, err := table.Merge(tables, "ts")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDataParallelMergedMap(t *testing.T) {
	srv := dataServer(t)
	defer srv.Close()

	specs := map[string]RequestSpec{
		"temperature": {Method: http.MethodGet, URL: "/temp"},
		"humidity":    {Method: http.MethodGet, URL: "/rh"},
	}
	merged, err := newTestClient(srv.URL).DataParallelMergedMap(context.Background(), specs, "ts")
	require.NoError(t, err)
	// Key order: humidity before temperature.
	assert.Equal(t, []string{"rh", "temp"}, merged.Columns())
	assert.Equal(t, 2, merged.Len())
}
