package switchbot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"
)

const contentType = "application/json; charset=utf8"

// Sign returns base64(HMAC-SHA256(secret, token+t+nonce)).
func Sign(token, secret, nonce, t string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(token + t + nonce))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Credentials identify the caller. They are fixed for the lifetime of a Client.
type Credentials struct {
	Token  string
	Secret string
	Nonce  string
}

// Headers builds the authentication header set for a request sent at now.
func (c Credentials) Headers(now time.Time) http.Header {
	t := strconv.FormatInt(now.UnixMilli(), 10)

	h := make(http.Header, 5)
	h.Set("Content-Type", contentType)
	h.Set("Authorization", c.Token)
	h.Set("sign", Sign(c.Token, c.Secret, c.Nonce, t))
	h.Set("t", t)
	h.Set("nonce", c.Nonce)
	return h
}
