package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	secret := "dev-secret"
	body := []byte(`{"nome":"Ana","telefone":"5511999990001"}`)
	now := time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC)
	ts := strconv.FormatInt(now.Add(-2*time.Minute).Unix(), 10)

	tests := []struct {
		name    string
		input   SignatureInput
		wantErr error
	}{
		{
			name:  "valid",
			input: SignatureInput{Secret: secret, TimestampHeader: ts, SignatureHeader: SignHex(secret, ts, body), Body: body, Now: now},
		},
		{
			name:  "valid with sha256 prefix",
			input: SignatureInput{Secret: secret, TimestampHeader: ts, SignatureHeader: "sha256=" + SignHex(secret, ts, body), Body: body, Now: now},
		},
		{
			name:    "bad timestamp",
			input:   SignatureInput{Secret: secret, TimestampHeader: "yesterday", SignatureHeader: "00", Body: body, Now: now},
			wantErr: ErrInvalidTimestamp,
		},
		{
			name:    "outside window",
			input:   SignatureInput{Secret: secret, TimestampHeader: ts, SignatureHeader: SignHex(secret, ts, body), Body: body, Now: now.Add(time.Hour)},
			wantErr: ErrTimestampOutsideWindow,
		},
		{
			name:    "wrong secret",
			input:   SignatureInput{Secret: secret, TimestampHeader: ts, SignatureHeader: SignHex("other", ts, body), Body: body, Now: now},
			wantErr: ErrInvalidSignature,
		},
		{
			name:    "tampered body",
			input:   SignatureInput{Secret: secret, TimestampHeader: ts, SignatureHeader: SignHex(secret, ts, body), Body: []byte(`{}`), Now: now},
			wantErr: ErrInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
