package intake

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tomerlevy/claimdesk/internal/session"
)

// The assistant signals a finished intake with a fenced block carrying
// {"status":"complete"} and the payload under the service-specific key.
var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

const terminalStatus = "complete"

type terminalEnvelope struct {
	Status            string          `json:"status"`
	ClaimData         json.RawMessage `json:"claimData"`
	ParkingAppealData json.RawMessage `json:"parkingAppealData"`
}

// ExtractClaim searches finalized assistant text for a terminal payload.
// It returns (payload, true) only when a fenced block parses, carries
// status "complete", and holds the payload key matching the service type.
// Anything else (no block, bad JSON, missing marker, wrong key) yields
// (nil, false): the intake simply is not done yet.
//
// Extraction is idempotent: the returned payload is the raw JSON substring
// of the message, so the same finalized text always produces byte-identical
// output. Callers must only invoke this once a message is terminal (its
// stream has ended); partial chunks hold truncated JSON.
func ExtractClaim(text string, serviceType session.ServiceType) (json.RawMessage, bool) {
	matches := fencedBlockRe.FindAllStringSubmatch(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		block := strings.TrimSpace(matches[i][1])
		if block == "" {
			continue
		}

		var env terminalEnvelope
		if err := json.Unmarshal([]byte(block), &env); err != nil {
			continue
		}
		if env.Status != terminalStatus {
			continue
		}

		switch serviceType {
		case session.ServiceParking:
			if len(env.ParkingAppealData) > 0 {
				return env.ParkingAppealData, true
			}
		default:
			if len(env.ClaimData) > 0 {
				return env.ClaimData, true
			}
		}
	}
	return nil, false
}

// HasTerminalMarker reports whether the text carries a terminal envelope for
// the service type, without extracting it. Used by display filtering to
// decide whether a stripped-bare message should show the canned ready line.
func HasTerminalMarker(text string, serviceType session.ServiceType) bool {
	_, ok := ExtractClaim(text, serviceType)
	return ok
}
