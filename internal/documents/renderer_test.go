package documents

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomerlevy/claimdesk/internal/session"
)

func TestRendererClientRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/render", r.URL.Path)
		assert.Equal(t, "Bearer render-key", r.Header.Get("Authorization"))

		var req RenderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, session.ServiceClaims, req.ServiceType)

		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.7 bin"))
	}))
	defer srv.Close()

	c := NewRendererClient(srv.URL, "render-key", nil)
	doc, err := c.Render(context.Background(), RenderRequest{
		ServiceType: session.ServiceClaims,
		Payload:     []byte(`{"plaintiff":{}}`),
	})
	require.NoError(t, err)
	defer doc.Body.Close()

	assert.Equal(t, "application/pdf", doc.ContentType)
	body, err := io.ReadAll(doc.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 bin", string(body))
}

func TestRendererClientUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "render crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewRendererClient(srv.URL, "", nil)
	_, err := c.Render(context.Background(), RenderRequest{ServiceType: session.ServiceClaims})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render crashed")
}
