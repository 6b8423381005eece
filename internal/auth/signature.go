package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidTimestamp       = errors.New("invalid timestamp")
	ErrTimestampOutsideWindow = errors.New("timestamp outside allowed window")
	ErrInvalidSignature       = errors.New("invalid signature")
)

// DefaultSignatureWindow bounds replayed webhook deliveries
const DefaultSignatureWindow = 5 * time.Minute

// SignatureInput is one signed webhook delivery
type SignatureInput struct {
	Secret          string
	TimestampHeader string
	SignatureHeader string
	Body            []byte
	Now             time.Time
	Window          time.Duration
}

// VerifySignature checks a hex HMAC-SHA256 over "<timestamp>.<body>"
func VerifySignature(in SignatureInput) error {
	tsHeader := strings.TrimSpace(in.TimestampHeader)
	sigHeader := strings.TrimPrefix(strings.TrimSpace(in.SignatureHeader), "sha256=")

	tsInt, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}

	window := in.Window
	if window <= 0 {
		window = DefaultSignatureWindow
	}
	ts := time.Unix(tsInt, 0).UTC()
	now := in.Now.UTC()
	if ts.Before(now.Add(-window)) || ts.After(now.Add(window)) {
		return ErrTimestampOutsideWindow
	}

	providedSig, err := hex.DecodeString(sigHeader)
	if err != nil {
		return ErrInvalidSignature
	}

	if !hmac.Equal(providedSig, signatureMAC(in.Secret, tsHeader, in.Body)) {
		return ErrInvalidSignature
	}
	return nil
}

// SignHex computes the signature header value for a delivery
func SignHex(secret, timestampHeader string, body []byte) string {
	return hex.EncodeToString(signatureMAC(secret, timestampHeader, body))
}

func signatureMAC(secret, timestampHeader string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestampHeader))
	_, _ = mac.Write([]byte{'.'})
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}
