package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "haiblock-go/"+Version, UserAgent())
}

func TestCheckCompatible(t *testing.T) {
	tests := []struct {
		name    string
		server  string
		wantErr bool
	}{
		{name: "same version", server: "1.0.0"},
		{name: "newer minor", server: "1.4.2"},
		{name: "leading v", server: "v1.2"},
		{name: "major bump", server: "2.0.0", wantErr: true},
		{name: "older major", server: "0.9.0", wantErr: true},
		{name: "garbage", server: "latest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCompatible(tt.server)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestIsNewer(t *testing.T) {
	assert.True(t, IsNewer("v0.2.0", "0.1.0"))
	assert.False(t, IsNewer("0.1.0", "0.1.0"))
	assert.False(t, IsNewer("0.0.9", "0.1.0"))
	assert.True(t, IsNewer("0.1.0", "dev"))
	assert.False(t, IsNewer("nightly", "0.1.0"))
}
