package tr064

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// challenge is a parsed WWW-Authenticate digest header. TR-064 devices
// use MD5 digest authentication on the SOAP control endpoints.
type challenge struct {
	realm  string
	nonce  string
	qop    string
	opaque string
}

func parseChallenge(header string) (challenge, error) {
	const prefix = "Digest "
	if !strings.HasPrefix(header, prefix) {
		return challenge{}, fmt.Errorf("not a digest challenge: %q", header)
	}

	ch := challenge{}
	for _, part := range strings.Split(header[len(prefix):], ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		value = strings.Trim(value, `"`)
		switch strings.ToLower(key) {
		case "realm":
			ch.realm = value
		case "nonce":
			ch.nonce = value
		case "qop":
			ch.qop = value
		case "opaque":
			ch.opaque = value
		}
	}
	if ch.nonce == "" {
		return challenge{}, fmt.Errorf("digest challenge without nonce: %q", header)
	}
	return ch, nil
}

// authorize computes the Authorization header for one request.
func (ch challenge) authorize(method, uri, user, password string) string {
	cnonce := newCnonce()
	nc := "00000001"
	response := ch.response(method, uri, user, password, nc, cnonce)

	var b strings.Builder
	fmt.Fprintf(&b, `Digest username=%q, realm=%q, nonce=%q, uri=%q, response=%q`,
		user, ch.realm, ch.nonce, uri, response)
	if ch.qop != "" {
		fmt.Fprintf(&b, `, qop=%s, nc=%s, cnonce=%q`, ch.qop, nc, cnonce)
	}
	if ch.opaque != "" {
		fmt.Fprintf(&b, `, opaque=%q`, ch.opaque)
	}
	return b.String()
}

func (ch challenge) response(method, uri, user, password, nc, cnonce string) string {
	ha1 := md5hex(user + ":" + ch.realm + ":" + password)
	ha2 := md5hex(method + ":" + uri)
	if ch.qop == "" {
		return md5hex(ha1 + ":" + ch.nonce + ":" + ha2)
	}
	return md5hex(strings.Join([]string{ha1, ch.nonce, nc, cnonce, ch.qop, ha2}, ":"))
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func newCnonce() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
