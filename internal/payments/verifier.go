// Package payments implements the processor-facing half of the webhook
// pipeline: signature verification, event parsing and classification, and
// customer-to-user identity resolution.
//
// Verification supports two header schemes for compatibility with different
// processor signing configurations:
//
//	simple:      "v1=<hex>"                  signs the raw payload
//	timestamped: "t=<unix>,v1=<hex>[,...]"   signs "{timestamp}.{payload}"
//
// Both use HMAC-SHA256 with the shared signing secret and constant-time
// comparison. A request that fails verification is rejected before any store
// access.
package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// WebhookVerifier abstracts webhook signature checking so the endpoint can be
// tested without real HMAC material and so the SDK-backed implementation can
// be swapped in by configuration.
type WebhookVerifier interface {
	// Verify validates a webhook payload against the provided signature
	// header and signing secret. Returns nil on success, an error on failure.
	Verify(payload []byte, header string, secret string) error
}

// NativeVerifier implements WebhookVerifier with in-repo HMAC verification.
// It never panics on malformed input: every failure path returns a plain
// error for the endpoint to log and translate into a 400.
type NativeVerifier struct{}

// NewNativeVerifier creates a NativeVerifier.
func NewNativeVerifier() *NativeVerifier {
	return &NativeVerifier{}
}

// Compile-time assertion that NativeVerifier satisfies WebhookVerifier.
var _ WebhookVerifier = (*NativeVerifier)(nil)

// Verify checks the signature header against the payload.
//
// Header classification: a single "v1=<hex>" pair is the simple scheme; any
// header containing a "t=" pair is the timestamped scheme. Everything else is
// malformed. The timestamped scheme succeeds if ANY supplied v1 value matches
// the expected signature, which supports the processor's secret-rotation
// window where two signatures are sent.
func (v *NativeVerifier) Verify(payload []byte, header string, secret string) error {
	if secret == "" {
		return errors.New("signing secret is not configured")
	}
	if header == "" {
		return errors.New("signature header is empty")
	}

	parts, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	if parts.timestamp == "" {
		return v.verifySimple(payload, parts.v1[0], secret)
	}
	return v.verifyTimestamped(payload, parts, secret)
}

// verifySimple checks HMAC-SHA256(secret, payload) against the single v1 value.
func (v *NativeVerifier) verifySimple(payload []byte, signature string, secret string) error {
	expected := computeHMAC(payload, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.New("signature mismatch")
	}
	return nil
}

// verifyTimestamped checks HMAC-SHA256(secret, "{t}.{payload}") against every
// supplied v1 value, succeeding on the first match.
func (v *NativeVerifier) verifyTimestamped(payload []byte, parts signatureParts, secret string) error {
	// The signed message is a UTF-8 string; a payload that is not valid
	// UTF-8 cannot have produced this header form.
	if !utf8.Valid(payload) {
		return errors.New("payload is not valid UTF-8 under the timestamped scheme")
	}

	signed := []byte(fmt.Sprintf("%s.%s", parts.timestamp, payload))
	expected := computeHMAC(signed, secret)

	matched := false
	for _, candidate := range parts.v1 {
		// Check every candidate unconditionally; no early exit on match so
		// header shape does not influence timing.
		if hmac.Equal([]byte(expected), []byte(candidate)) {
			matched = true
		}
	}
	if !matched {
		return errors.New("no v1 signature matched")
	}
	return nil
}

// signatureParts holds the parsed components of a signature header.
type signatureParts struct {
	timestamp string
	v1        []string
}

// parseSignatureHeader breaks a signature header into its component parts and
// validates its shape:
//   - simple form: exactly one "v1=<hex>" pair and nothing else
//   - timestamped form: exactly one "t=<unix>" pair and one or more "v1=" pairs
//
// Unknown keys (e.g. v0 sent by some processor configurations) are ignored.
func parseSignatureHeader(header string) (signatureParts, error) {
	var parts signatureParts
	timestamps := 0

	for _, segment := range strings.Split(header, ",") {
		kv := strings.SplitN(segment, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])
		switch key {
		case "t":
			timestamps++
			parts.timestamp = value
		case "v1":
			parts.v1 = append(parts.v1, value)
		}
	}

	if timestamps > 1 {
		return parts, errors.New("malformed signature header: multiple timestamps")
	}
	if len(parts.v1) == 0 {
		return parts, errors.New("malformed signature header: no v1 entries")
	}
	if timestamps == 0 && len(parts.v1) > 1 {
		return parts, errors.New("malformed signature header: multiple v1 entries without timestamp")
	}
	if timestamps == 1 && parts.timestamp == "" {
		return parts, errors.New("malformed signature header: empty timestamp")
	}

	return parts, nil
}

// computeHMAC computes the HMAC-SHA256 of content using the given key and
// returns it as a lowercase hex string.
func computeHMAC(content []byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(content)
	return hex.EncodeToString(mac.Sum(nil))
}
