package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetInfo(t *testing.T) {
	originalVersion := Version
	originalBuildTime := BuildTime
	originalGitCommit := GitCommit
	originalGoVersion := GoVersion

	defer func() {
		Version = originalVersion
		BuildTime = originalBuildTime
		GitCommit = originalGitCommit
		GoVersion = originalGoVersion
	}()

	SetInfo("1.0.0", "2026-01-01T00:00:00Z", "abc123", "go1.26")

	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "2026-01-01T00:00:00Z", BuildTime)
	assert.Equal(t, "abc123", GitCommit)
	assert.Equal(t, "go1.26", GoVersion)
}

func TestSetInfoEmptyValues(t *testing.T) {
	originalVersion := Version
	defer func() { Version = originalVersion }()

	SetInfo("", "", "", "")
	assert.Equal(t, originalVersion, Version)
}

func TestCheckCompatible(t *testing.T) {
	tests := []struct {
		name    string
		client  string
		server  string
		wantErr string
	}{
		{"identical", "1.2.0", "1.2.0", ""},
		{"newer patch", "1.2.0", "1.2.7", ""},
		{"older patch", "1.2.3", "1.2.0", ""},
		{"newer minor", "1.2.0", "1.3.0", "protocol mismatch"},
		{"older minor", "1.2.0", "1.1.9", "protocol mismatch"},
		{"other major", "1.2.0", "2.2.0", "protocol mismatch"},
		{"garbage", "1.2.0", "one.two", "invalid daemon protocol version"},
		{"empty", "1.2.0", "", "invalid daemon protocol version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkCompatible(tt.client, tt.server)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCompatibleProtocol_Self(t *testing.T) {
	assert.NoError(t, CompatibleProtocol(ProtocolVersion))
}

func TestFormatInfo(t *testing.T) {
	info := FormatInfo()
	assert.True(t, strings.Contains(info, ProtocolVersion))
	assert.True(t, strings.HasPrefix(info, "jqctl "))
}
