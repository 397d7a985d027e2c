package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Flare200/natours/pkg/errors"
)

// DefaultSignatureTolerance bounds how old a webhook timestamp may be before
// the delivery is rejected as a possible replay.
const DefaultSignatureTolerance = 5 * time.Minute

// VerifySignature checks a webhook signature header of the form
// "t=<unix>,v1=<hex hmac>" against the shared endpoint secret. The HMAC is
// computed over "<unix>.<payload>" with SHA-256. Any failure maps to the
// signature-invalid error so the handler responds non-2xx and the gateway
// redelivers.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return apperrors.SignatureInvalid("missing signature header")
	}

	var (
		timestamp  string
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return apperrors.SignatureInvalid("malformed signature header")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return apperrors.SignatureInvalid("malformed signature timestamp")
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return apperrors.SignatureInvalid("signature timestamp outside tolerance")
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		got, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, got) {
			return nil
		}
	}

	return apperrors.SignatureInvalid("signature mismatch")
}

// SignPayload produces a signature header for a payload, used by tests and
// local tooling to forge valid deliveries.
func SignPayload(payload []byte, secret string, at time.Time) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)

	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

// ParseEvent decodes a verified webhook payload into an event.
func ParseEvent(payload []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, apperrors.InvalidInput("malformed webhook payload")
	}
	if event.Type == "" {
		return nil, apperrors.InvalidInput("webhook payload missing event type")
	}
	return &event, nil
}
