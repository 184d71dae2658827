package tr064

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChallenge(t *testing.T) {
	header := `Digest realm="HTTPS Access", nonce="7EC17A9EC84DF2AC", qop="auth", opaque="abc123"`

	ch, err := parseChallenge(header)
	require.NoError(t, err)

	assert.Equal(t, "HTTPS Access", ch.realm)
	assert.Equal(t, "7EC17A9EC84DF2AC", ch.nonce)
	assert.Equal(t, "auth", ch.qop)
	assert.Equal(t, "abc123", ch.opaque)
}

func TestParseChallengeRejectsBasic(t *testing.T) {
	_, err := parseChallenge(`Basic realm="HTTPS Access"`)
	assert.Error(t, err)
}

func TestParseChallengeRequiresNonce(t *testing.T) {
	_, err := parseChallenge(`Digest realm="HTTPS Access"`)
	assert.Error(t, err)
}

// RFC 2617 section 3.5 example.
func TestDigestResponseRFCVector(t *testing.T) {
	ch := challenge{
		realm:  "testrealm@host.com",
		nonce:  "dcd98b7102dd2f0e8b11d0f600bfb0c093",
		qop:    "auth",
		opaque: "5ccc069c403ebaf9f0171e9517f40e41",
	}

	got := ch.response("GET", "/dir/index.html", "Mufasa", "Circle Of Life", "00000001", "0a4f113b")

	assert.Equal(t, "6629fae49393a05397450978507c4ef1", got)
}

func TestAuthorizeHeaderShape(t *testing.T) {
	ch := challenge{realm: "HTTPS Access", nonce: "7EC17A9EC84DF2AC", qop: "auth"}

	header := ch.authorize("POST", "/upnp/control/deviceinfo", "admin", "gurkensalat")

	assert.True(t, strings.HasPrefix(header, "Digest "))
	assert.Contains(t, header, `username="admin"`)
	assert.Contains(t, header, `uri="/upnp/control/deviceinfo"`)
	assert.Contains(t, header, `qop=auth`)
	assert.Contains(t, header, `nc=00000001`)
	assert.NotContains(t, header, "gurkensalat")
}
