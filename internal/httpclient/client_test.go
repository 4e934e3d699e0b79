package httpclient

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	client := New(Options{Timeout: 30 * time.Second})

	assert.Equal(t, 30*time.Second, client.Timeout)
	assert.Equal(t, 10, client.maxRedirects)
	assert.Equal(t, []string{"http", "https"}, client.allowedSchemes)
	assert.False(t, client.blockPrivateIP)
}

func TestValidateURL(t *testing.T) {
	client := New(Options{BlockPrivateIP: true})

	tests := []struct {
		name        string
		url         string
		errContains string
	}{
		{"https allowed", "https://example.com/dmp/", ""},
		{"http allowed", "http://example.com", ""},
		{"public IP allowed", "http://8.8.8.8/", ""},
		{"file scheme blocked", "file:///etc/passwd", "scheme"},
		{"ftp scheme blocked", "ftp://example.com", "scheme"},
		{"localhost blocked", "http://localhost/dmp/", "localhost"},
		{"localhost subdomain blocked", "http://engine.localhost/", "localhost"},
		{"loopback blocked", "http://127.0.0.1/", "private IP"},
		{"10.x blocked", "http://10.0.0.1/", "private IP"},
		{"192.168.x blocked", "http://192.168.1.1/", "private IP"},
		{"172.16.x blocked", "http://172.16.0.1/", "private IP"},
		{"link-local blocked", "http://169.254.169.254/metadata", "private IP"},
		{"credentials blocked", "http://evil.com@example.com/", "@"},
		{"empty hostname", "http:///path", "hostname"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.ValidateURL(tt.url)
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestValidateURLAllowsPrivateWhenNotBlocking(t *testing.T) {
	client := New(Options{})
	_, err := client.ValidateURL("http://127.0.0.1:8087/dmp/")
	assert.NoError(t, err)
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip        string
		isPrivate bool
	}{
		{"10.0.0.1", true},
		{"192.168.255.255", true},
		{"172.31.255.255", true},
		{"127.0.0.1", true},
		{"169.254.169.254", true},
		{"0.0.0.0", true},
		{"224.0.0.1", true},
		{"240.0.0.1", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
		{"::1", true},
		{"fe80::1", true},
		{"fc00::1", true},
		{"2001:db8::1", true},
		{"2001:4860:4860::8888", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			require.NotNil(t, ip)
			assert.Equal(t, tt.isPrivate, isPrivateIP(ip))
		})
	}
}

func TestIsLocalhost(t *testing.T) {
	assert.True(t, isLocalhost("LOCALHOST"))
	assert.True(t, isLocalhost("localhost.localdomain"))
	assert.True(t, isLocalhost("admin.localhost"))
	assert.False(t, isLocalhost("local.host"))
	assert.False(t, isLocalhost("example.com"))
}

func TestMaxRedirects(t *testing.T) {
	client := New(Options{Timeout: 5 * time.Second, MaxRedirects: 3})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/redirect", http.StatusFound)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	if err == nil {
		resp.Body.Close()
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after 3 redirects")
}

func TestRedirectToBlockedScheme(t *testing.T) {
	client := WrapClient(&http.Client{Timeout: 5 * time.Second})
	client.CheckRedirect = New(Options{}).CheckRedirect

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "ftp://example.com/", http.StatusFound)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	if err == nil {
		resp.Body.Close()
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect blocked")
}

func TestDoSetsUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(Options{Timeout: 5 * time.Second, UserAgent: "tpu/test"})
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "tpu/test", got)
}

func TestDoBlocksPrivateTargets(t *testing.T) {
	client := New(Options{BlockPrivateIP: true})
	req, err := http.NewRequest(http.MethodGet, "http://localhost/", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	if err == nil {
		resp.Body.Close()
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request blocked")
}
