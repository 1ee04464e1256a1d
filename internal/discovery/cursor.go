package discovery

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

var ErrInvalidCursor = errors.New("invalid pagination cursor")

// feedCursor is an opaque offset into the ranked pool. Clients must treat
// cursors as tokens; the encoding is not part of the API contract.
type feedCursor struct {
	Offset int `json:"o"`
}

func encodeCursor(c feedCursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(token string) (feedCursor, error) {
	if token == "" {
		return feedCursor{}, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return feedCursor{}, ErrInvalidCursor
	}

	var c feedCursor
	if err := json.Unmarshal(raw, &c); err != nil || c.Offset < 0 {
		return feedCursor{}, ErrInvalidCursor
	}

	return c, nil
}
