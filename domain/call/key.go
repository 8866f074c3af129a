package call

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// CacheKey derives the deterministic key shared by the response cache and
// the deduplication registry. Two requests with the same call type, region,
// and deep-equal payload collide intentionally so identical logical calls
// hit the same cache entry and suppress each other in flight.
//
// The payload is serialized with encoding/json, which emits map keys in
// sorted order, so the key is stable across equivalent payloads.
func (r Request) CacheKey() (string, error) {
	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return "", errors.Join(ErrKeyDerivation, err)
	}

	h := sha256.New()
	h.Write([]byte(r.CallType))
	h.Write([]byte{0})
	h.Write([]byte(r.Region))
	h.Write([]byte{0})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}
