package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"draft to pending", StatusDraft, StatusPendingPayment, true},
		{"draft to paid", StatusDraft, StatusPaid, true},
		{"pending to paid", StatusPendingPayment, StatusPaid, true},
		{"paid to paid", StatusPaid, StatusPaid, true},
		{"pending to draft", StatusPendingPayment, StatusDraft, false},
		{"paid to pending", StatusPaid, StatusPendingPayment, false},
		{"paid to draft", StatusPaid, StatusDraft, false},
		{"unknown target", StatusDraft, Status("refunded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestServiceType(t *testing.T) {
	assert.True(t, ServiceClaims.Valid())
	assert.True(t, ServiceParking.Valid())
	assert.False(t, ServiceType("divorce").Valid())

	assert.Equal(t, 8, ServiceClaims.MaxSteps())
	assert.Equal(t, 6, ServiceParking.MaxSteps())
}

func TestClaimPayloadCustomer(t *testing.T) {
	claims, err := NewClaimPayload(ServiceClaims, []byte(`{"plaintiff":{"fullName":"Dana Levi","phone":"0501234567","email":"dana@example.com"}}`))
	assert.NoError(t, err)
	name, phone, email := claims.Customer()
	assert.Equal(t, "Dana Levi", name)
	assert.Equal(t, "0501234567", phone)
	assert.Equal(t, "dana@example.com", email)

	parking, err := NewClaimPayload(ServiceParking, []byte(`{"appellant":{"firstName":"Noa","lastName":"Katz","phone":"0527654321"},"ticket":{"ticketNumber":"TK-4412"}}`))
	assert.NoError(t, err)
	name, phone, _ = parking.Customer()
	assert.Equal(t, "Noa Katz", name)
	assert.Equal(t, "0527654321", phone)
	assert.Equal(t, "TK-4412", parking.FilenameHint())
}

func TestNewClaimPayloadRejectsUnknownServiceType(t *testing.T) {
	_, err := NewClaimPayload(ServiceType("other"), []byte(`{}`))
	assert.ErrorIs(t, err, ErrPayloadShape)
}
