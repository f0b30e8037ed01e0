package signature

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// Prefix precedes the hex digest in the signature header.
const Prefix = "sha256="

// Header names used by the board.
const (
	HeaderTimestamp = "X-WBoard-Timestamp"
	HeaderSignature = "X-WBoard-Signature"
	HeaderSiteID    = "X-WBoard-Site-ID"
)

var (
	emptyData = []byte("{}")
	nullData  = []byte("null")
)

// CanonicalPayload returns the exact bytes that are signed for timestamp and
// body.
func CanonicalPayload(timestamp int64, body []byte) []byte {
	data := canonicalData(body)

	var b bytes.Buffer
	b.Grow(len(data) + 40)
	b.WriteString(`{"timestamp":`)
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteString(`,"data":`)
	b.Write(data)
	b.WriteByte('}')
	return b.Bytes()
}

// canonicalData maps a zero-length body to {}. Anything else goes through
// json.Compact, so a whitespace-only body is invalid JSON and maps to null.
func canonicalData(body []byte) []byte {
	if len(body) == 0 {
		return emptyData
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return nullData
	}
	return compact.Bytes()
}

// Sign computes the signature header value for timestamp and body.
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(CanonicalPayload(timestamp, body))
	return Prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether provided is the signature of timestamp and body
// under secret. The comparison runs in constant time.
func Verify(secret string, timestamp int64, body []byte, provided string) bool {
	expected := Sign(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(provided))
}

// SignRequest sets the timestamp, signature and optional site id headers on
// req for body, which must be the exact bytes sent as the request body.
func SignRequest(req *http.Request, secret, siteID string, now time.Time, body []byte) error {
	if req == nil {
		return errors.New("nil request")
	}
	if secret == "" {
		return errors.New("empty secret")
	}

	ts := now.Unix()
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, Sign(secret, ts, body))
	if siteID != "" {
		req.Header.Set(HeaderSiteID, siteID)
	}
	return nil
}
