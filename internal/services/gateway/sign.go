package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// ParamSignature is the request/callback parameter carrying the HMAC.
// It is excluded from its own signature base string.
const ParamSignature = "signature"

// Sign computes the HMAC-SHA512 signature over the canonicalized
// parameter set: keys sorted ascending, values percent-encoded, joined as
// key=value pairs with "&". The signature parameter itself is skipped.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == ParamSignature {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the signature over params and compares it to
// the supplied one in constant time.
func VerifySignature(params map[string]string, secret string) bool {
	supplied, ok := params[ParamSignature]
	if !ok || supplied == "" {
		return false
	}
	expected := Sign(params, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(supplied)))
}
