package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatchOriginPattern(t *testing.T) {
	tests := []struct {
		pattern string
		host    string
		want    bool
	}{
		{"example.com", "example.com", true},
		{"example.com", "evil.com", false},
		{"*.example.com", "app.example.com", true},
		{"*.example.com", "deep.app.example.com", true},
		{"*.example.com", "example.org", false},
		{"localhost:*", "localhost:3000", true},
		{"localhost:*", "localghost:3000", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchOriginPattern(tt.pattern, tt.host), "%s vs %s", tt.pattern, tt.host)
	}
}

func TestExtractOriginHost(t *testing.T) {
	assert.Equal(t, "app.example.com", extractOriginHost("https://app.example.com"))
	assert.Equal(t, "localhost:3000", extractOriginHost("http://localhost:3000"))
	assert.Equal(t, "not a url", extractOriginHost("not a url"))
}

func TestHumanizeDuration(t *testing.T) {
	assert.Equal(t, "30s", humanizeDuration(30*time.Second))
	assert.Equal(t, "5m0s", humanizeDuration(5*time.Minute+20*time.Second))
	assert.Equal(t, "3h0m0s", humanizeDuration(3*time.Hour+10*time.Minute))
}
