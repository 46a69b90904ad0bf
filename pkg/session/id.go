package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// idBytes gives 192 bits of entropy, a 32 character url-safe id.
const idBytes = 24

func generateID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrIDGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
