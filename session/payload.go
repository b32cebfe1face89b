package session

import (
	"errors"
	"fmt"
)

// Wire keys of the serialized identity claim.
const (
	KeyAuthToken = "auth_token"
	KeyID        = "id"
)

var (
	// ErrPayloadMissingToken is returned when a token-mode payload has no auth_token.
	ErrPayloadMissingToken = errors.New("session payload missing auth_token")
	// ErrPayloadMissingID is returned when a stateless payload has no id.
	ErrPayloadMissingID = errors.New("session payload missing id")
)

// Payload is the identity claim embedded in a bearer credential. Exactly one
// of AuthToken or ID is set, chosen by the session Mode.
type Payload struct {
	AuthToken string
	ID        string
}

// ToPayload builds the payload for an account: the most recent session token in
// token modes, the account id in stateless mode.
func ToPayload(mode Mode, tokens []string, accountID string) Payload {
	if mode == ModeStateless {
		return Payload{ID: accountID}
	}
	var last string
	if len(tokens) > 0 {
		last = tokens[len(tokens)-1]
	}
	return Payload{AuthToken: last}
}

// Map returns the wire shape {"auth_token": ...} or {"id": ...}.
func (p Payload) Map() map[string]any {
	if p.AuthToken != "" {
		return map[string]any{KeyAuthToken: p.AuthToken}
	}
	return map[string]any{KeyID: p.ID}
}

// ParsePayload reads the field relevant to mode from a decoded wire payload.
func ParsePayload(mode Mode, raw map[string]any) (Payload, error) {
	if mode == ModeStateless {
		id, err := stringField(raw, KeyID)
		if err != nil {
			return Payload{}, err
		}
		if id == "" {
			return Payload{}, ErrPayloadMissingID
		}
		return Payload{ID: id}, nil
	}

	tok, err := stringField(raw, KeyAuthToken)
	if err != nil {
		return Payload{}, err
	}
	if tok == "" {
		return Payload{}, ErrPayloadMissingToken
	}
	return Payload{AuthToken: tok}, nil
}

func stringField(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("session payload %s: expected string, got %T", key, v)
	}
	return s, nil
}
