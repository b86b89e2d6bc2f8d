package notification

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Header names set on signed webhook deliveries.
const (
	HeaderSignature = "X-Orderflow-Signature"
	HeaderTimestamp = "X-Orderflow-Timestamp"
)

// Signer signs webhook payloads with HMAC-SHA256.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer for the shared secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns "sha256=<hex>" over "<unix>.<payload>".
func (s *Signer) Sign(payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Headers returns the signature headers for a delivery made at ts.
func (s *Signer) Headers(payload []byte, ts time.Time) map[string]string {
	return map[string]string{
		HeaderSignature: s.Sign(payload, ts),
		HeaderTimestamp: strconv.FormatInt(ts.Unix(), 10),
	}
}

// Verify checks a signature and rejects timestamps outside tolerance of now.
func (s *Signer) Verify(payload []byte, signature string, timestamp int64, tolerance time.Duration, now time.Time) bool {
	skew := now.Unix() - timestamp
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(tolerance.Seconds()) {
		return false
	}
	expected := s.Sign(payload, time.Unix(timestamp, 0))
	return hmac.Equal([]byte(expected), []byte(signature))
}
