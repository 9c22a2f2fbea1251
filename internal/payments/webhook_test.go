package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookTestKey = "whsec-test"

type fakeProcessed struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newFakeProcessed() *fakeProcessed {
	return &fakeProcessed{seen: make(map[string]bool)}
}

func (f *fakeProcessed) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.seen[provider+":"+eventID], nil
}

func (f *fakeProcessed) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := provider + ":" + eventID
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

type fakeConfirmer struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (f *fakeConfirmer) Confirm(ctx context.Context, sessionID uuid.UUID, channel string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	f.calls = append(f.calls, sessionID)
	return true, nil
}

func signedWebhookRequest(t *testing.T, key string, event map[string]any) *http.Request {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "http://claimdesk.test/payment/webhook", bytes.NewReader(body))
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte("http://claimdesk.test/payment/webhook" + string(body)))
	req.Header.Set("X-Payment-Signature", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	return req
}

func completedEvent(eventID string, sessionID uuid.UUID) map[string]any {
	return map[string]any{
		"event_id": eventID,
		"type":     "payment.updated",
		"data": map[string]any{
			"object": map[string]any{
				"payment": map[string]any{
					"id":       "pay-1",
					"status":   "COMPLETED",
					"metadata": map[string]string{"session_id": sessionID.String()},
				},
			},
		},
	}
}

func TestWebhookConfirmsCompletedPayment(t *testing.T) {
	processed := newFakeProcessed()
	confirmer := &fakeConfirmer{}
	h := NewWebhookHandler(webhookTestKey, processed, confirmer, nil)

	sessionID := uuid.New()
	rec := httptest.NewRecorder()
	h.Handle(rec, signedWebhookRequest(t, webhookTestKey, completedEvent("evt-1", sessionID)))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, confirmer.calls, 1)
	assert.Equal(t, sessionID, confirmer.calls[0])
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := NewWebhookHandler(webhookTestKey, newFakeProcessed(), &fakeConfirmer{}, nil)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedWebhookRequest(t, "wrong-key", completedEvent("evt-1", uuid.New())))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookDuplicateEventIsAcknowledged(t *testing.T) {
	processed := newFakeProcessed()
	confirmer := &fakeConfirmer{}
	h := NewWebhookHandler(webhookTestKey, processed, confirmer, nil)

	sessionID := uuid.New()
	first := httptest.NewRecorder()
	h.Handle(first, signedWebhookRequest(t, webhookTestKey, completedEvent("evt-dup", sessionID)))
	second := httptest.NewRecorder()
	h.Handle(second, signedWebhookRequest(t, webhookTestKey, completedEvent("evt-dup", sessionID)))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Len(t, confirmer.calls, 1)
}

func TestWebhookIgnoresIncompletePayment(t *testing.T) {
	confirmer := &fakeConfirmer{}
	h := NewWebhookHandler(webhookTestKey, newFakeProcessed(), confirmer, nil)

	event := completedEvent("evt-2", uuid.New())
	event["data"].(map[string]any)["object"].(map[string]any)["payment"].(map[string]any)["status"] = "PENDING"

	rec := httptest.NewRecorder()
	h.Handle(rec, signedWebhookRequest(t, webhookTestKey, event))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, confirmer.calls)
}

func TestWebhookMissingEventID(t *testing.T) {
	h := NewWebhookHandler(webhookTestKey, newFakeProcessed(), &fakeConfirmer{}, nil)

	event := map[string]any{"type": "payment.updated"}
	rec := httptest.NewRecorder()
	h.Handle(rec, signedWebhookRequest(t, webhookTestKey, event))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookUnplaceableSessionAcknowledged(t *testing.T) {
	confirmer := &fakeConfirmer{}
	h := NewWebhookHandler(webhookTestKey, newFakeProcessed(), confirmer, nil)

	event := completedEvent("evt-3", uuid.New())
	event["data"].(map[string]any)["object"].(map[string]any)["payment"].(map[string]any)["metadata"] = map[string]string{}

	rec := httptest.NewRecorder()
	h.Handle(rec, signedWebhookRequest(t, webhookTestKey, event))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, confirmer.calls)
}
