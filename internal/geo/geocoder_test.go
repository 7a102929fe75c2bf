package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatim_Resolve(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"48.8566","lon":"2.3522","display_name":"Paris"}]`))
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL+"/", "show-directory-test", time.Second)
	p, ok, err := n.Resolve(context.Background(), " Paris ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 48.8566, p.Lat, 1e-9)
	assert.InDelta(t, 2.3522, p.Lng, 1e-9)
	assert.Equal(t, "Paris", gotQuery)
	assert.Equal(t, "show-directory-test", gotUA)
}

func TestNominatim_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, ok, err := NewNominatim(srv.URL, "t", time.Second).Resolve(context.Background(), "zzz")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNominatim_EmptyAddressSkipsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	_, ok, err := NewNominatim(srv.URL, "t", time.Second).Resolve(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, called)
}

func TestNominatim_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, ok, err := NewNominatim(srv.URL, "t", time.Second).Resolve(context.Background(), "Paris")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNominatim_ContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, _, err := NewNominatim(srv.URL, "t", 5*time.Second).Resolve(ctx, "Paris")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
