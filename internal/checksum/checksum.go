// Package checksum implements the X-VERIFY header scheme used by the
// payment gateway: a SHA-256 hex digest followed by "###" and the salt index.
package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
)

const separator = "###"

// Compute builds the X-VERIFY value for an outgoing request:
// sha256(base64Payload + endpointPath + saltKey) + "###" + saltIndex.
// For GET endpoints that carry no body, pass an empty payload.
func Compute(base64Payload, endpointPath, saltKey string, saltIndex int) string {
	sum := sha256.Sum256([]byte(base64Payload + endpointPath + saltKey))
	return hex.EncodeToString(sum[:]) + separator + strconv.Itoa(saltIndex)
}

// VerifyWebhook checks the X-VERIFY header supplied with a webhook delivery
// against sha256(rawBody + saltKey). The comparison is constant-time; the
// digest itself is not secret but the salt it commits to is.
func VerifyWebhook(rawBody []byte, header, saltKey string) bool {
	supplied, _, found := strings.Cut(header, separator)
	if !found || supplied == "" {
		return false
	}

	h := sha256.New()
	h.Write(rawBody)
	h.Write([]byte(saltKey))
	expected := hex.EncodeToString(h.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}
