package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrustedProxies(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.10 ", "", "::1"})
	require.NoError(t, err)
	assert.Len(t, proxies, 3)

	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.ErrorContains(t, err, "invalid trusted proxy")

	_, err = ParseTrustedProxies([]string{"proxy.internal"})
	assert.ErrorContains(t, err, "invalid trusted proxy")

	none, err := ParseTrustedProxies(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTrustedProxies_ClientIP(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		proxies TrustedProxies
		remote  string
		xff     []string
		want    string
	}{
		{"no proxies ignores header", nil, "203.0.113.7:51000", []string{"1.2.3.4"}, "203.0.113.7"},
		{"untrusted peer ignores header", proxies, "203.0.113.7:51000", []string{"1.2.3.4"}, "203.0.113.7"},
		{"port is stripped", nil, "203.0.113.7:4242", nil, "203.0.113.7"},
		{"bare host", nil, "203.0.113.7", nil, "203.0.113.7"},
		{"trusted peer uses header", proxies, "10.1.2.3:443", []string{"198.51.100.4"}, "198.51.100.4"},
		{"skips trusted hops", proxies, "10.1.2.3:443", []string{"198.51.100.4, 10.9.9.9"}, "198.51.100.4"},
		{"spoofed leftmost entry loses", proxies, "10.1.2.3:443", []string{"1.1.1.1, 198.51.100.4"}, "198.51.100.4"},
		{"garbage hop falls back to peer", proxies, "10.1.2.3:443", []string{"not-an-ip"}, "10.1.2.3"},
		{"trusted peer without header", proxies, "10.1.2.3:443", nil, "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.proxies.ClientIP(tt.remote, tt.xff))
		})
	}
}
