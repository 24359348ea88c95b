package wallpaper

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Flags(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want Flags
	}{
		{"Defaults", Options{}, FlagSystem},
		{"LockOnly", Options{IsSystem: Bool(false), IsLock: Bool(true)}, FlagLock},
		{"Both", Options{IsLock: Bool(true)}, FlagSystem | FlagLock},
		{"NeitherFallsBackToSystem", Options{IsSystem: Bool(false), IsLock: Bool(false)}, FlagSystem},
		{"ExplicitSystem", Options{IsSystem: Bool(true)}, FlagSystem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.Flags())
		})
	}
}

func TestOptions_FromJSON(t *testing.T) {
	var opts Options
	require.NoError(t, json.Unmarshal([]byte(`{}`), &opts))
	assert.Equal(t, FlagSystem, opts.Flags())
	assert.True(t, opts.centered())

	require.NoError(t, json.Unmarshal([]byte(`{"isSystem":false,"isLock":true,"centerHorizontally":false}`), &opts))
	assert.Equal(t, FlagLock, opts.Flags())
	assert.False(t, opts.centered())
}

func TestFlags_String(t *testing.T) {
	assert.Equal(t, "system", FlagSystem.String())
	assert.Equal(t, "lock", FlagLock.String())
	assert.Equal(t, "system|lock", (FlagSystem | FlagLock).String())
	assert.Equal(t, "none", Flags(0).String())
}
