package credentials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPCollaboratorFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aws", r.URL.Query().Get("provider"))
		assert.Equal(t, "user-1", r.URL.Query().Get("principal"))
		assert.Equal(t, "variables", r.URL.Query().Get("kind"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"properties":{"AWS_ACCESS_KEY_ID":"AKIA"},"ttlSeconds":300}`))
	}))
	defer srv.Close()

	collab := NewHTTPCollaborator(srv.URL)
	cred, ttl, err := collab.Fetch(context.Background(), Key{Provider: "aws", Principal: "user-1", Kind: "variables"})
	require.NoError(t, err)
	assert.Equal(t, "AKIA", cred.Properties["AWS_ACCESS_KEY_ID"])
	assert.Equal(t, int64(300), int64(ttl.Seconds()))
}

func TestHTTPCollaboratorFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	collab := NewHTTPCollaborator(srv.URL)
	_, _, err := collab.Fetch(context.Background(), Key{Provider: "aws", Principal: "user-1", Kind: "variables"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestHTTPCollaboratorRejectsZeroTTL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties":{},"ttlSeconds":0}`))
	}))
	defer srv.Close()

	collab := NewHTTPCollaborator(srv.URL)
	_, _, err := collab.Fetch(context.Background(), Key{Provider: "gcp", Principal: "u", Kind: "variables"})
	require.Error(t, err)
}
