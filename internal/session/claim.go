package session

import (
	"encoding/json"
	"errors"
	"strings"
)

// ClaimPayload is the discriminated union of terminal intake payloads,
// tagged by ServiceType. Exactly one of Claims or Parking is set.
type ClaimPayload struct {
	ServiceType ServiceType     `json:"serviceType"`
	Claims      json.RawMessage `json:"claimData,omitempty"`
	Parking     json.RawMessage `json:"parkingAppealData,omitempty"`
}

// ErrPayloadShape is returned when a payload does not match its service type.
var ErrPayloadShape = errors.New("session: payload does not match service type")

// NewClaimPayload builds a payload for the given service type from raw
// extracted JSON. The caller decides the variant by the session's service
// type; field sniffing is deliberately not supported.
func NewClaimPayload(serviceType ServiceType, raw json.RawMessage) (ClaimPayload, error) {
	p := ClaimPayload{ServiceType: serviceType}
	switch serviceType {
	case ServiceClaims:
		p.Claims = raw
	case ServiceParking:
		p.Parking = raw
	default:
		return ClaimPayload{}, ErrPayloadShape
	}
	return p, nil
}

// ParseClaimPayload reconstructs the union from a session's stored claim_data.
func ParseClaimPayload(serviceType ServiceType, raw json.RawMessage) (ClaimPayload, error) {
	if len(raw) == 0 {
		return ClaimPayload{}, errors.New("session: empty claim payload")
	}
	return NewClaimPayload(serviceType, raw)
}

// Raw returns the variant's raw JSON object.
func (p ClaimPayload) Raw() json.RawMessage {
	if p.ServiceType == ServiceParking {
		return p.Parking
	}
	return p.Claims
}

type partyFields struct {
	FullName  string `json:"fullName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

func (f partyFields) name() string {
	if f.FullName != "" {
		return f.FullName
	}
	return strings.TrimSpace(f.FirstName + " " + f.LastName)
}

type claimsFields struct {
	Plaintiff partyFields `json:"plaintiff"`
}

type parkingFields struct {
	Appellant partyFields `json:"appellant"`
	Ticket    struct {
		TicketNumber string `json:"ticketNumber"`
	} `json:"ticket"`
}

// Customer returns the contact fields of the paying party (plaintiff or
// appellant, whichever variant is present). Missing fields come back empty.
func (p ClaimPayload) Customer() (name, phone, email string) {
	switch p.ServiceType {
	case ServiceParking:
		var f parkingFields
		if err := json.Unmarshal(p.Parking, &f); err != nil {
			return "", "", ""
		}
		return f.Appellant.name(), f.Appellant.Phone, f.Appellant.Email
	default:
		var f claimsFields
		if err := json.Unmarshal(p.Claims, &f); err != nil {
			return "", "", ""
		}
		return f.Plaintiff.name(), f.Plaintiff.Phone, f.Plaintiff.Email
	}
}

// FilenameHint returns the payload field used to derive the generated
// document's filename: party name for claims, ticket number for parking.
func (p ClaimPayload) FilenameHint() string {
	switch p.ServiceType {
	case ServiceParking:
		var f parkingFields
		if err := json.Unmarshal(p.Parking, &f); err != nil {
			return ""
		}
		if f.Ticket.TicketNumber != "" {
			return f.Ticket.TicketNumber
		}
		return f.Appellant.name()
	default:
		var f claimsFields
		if err := json.Unmarshal(p.Claims, &f); err != nil {
			return ""
		}
		return f.Plaintiff.name()
	}
}
