package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveSyncPreset(t *testing.T) {
	opts := Options{Sync: true}
	opts.Resolve()

	require.True(t, opts.CheckBinaries)
	require.True(t, opts.CheckExtensions)
	require.True(t, opts.UpdateBinaries)
	require.True(t, opts.UpdateExts)
	require.True(t, opts.UpdateMalicious)
	require.True(t, opts.CheckSpecified)
	require.False(t, opts.CheckInsider)
	require.Empty(t, opts.ExtensionSearch)
	require.Equal(t, 12*time.Hour, opts.Frequency)
}

func TestResolveSyncAllPreset(t *testing.T) {
	opts := Options{SyncAll: true}
	opts.Resolve()

	require.True(t, opts.CheckInsider)
	require.Equal(t, "*", opts.ExtensionSearch)
	require.Equal(t, 12*time.Hour, opts.Frequency)
}

func TestResolveKeepsExplicitFrequency(t *testing.T) {
	opts := Options{Sync: true, Frequency: time.Hour}
	opts.Resolve()
	require.Equal(t, time.Hour, opts.Frequency)
}

func TestResolveDefaults(t *testing.T) {
	opts := Options{}
	opts.Resolve()

	require.False(t, opts.CheckBinaries)
	require.Zero(t, opts.Frequency)
	require.Equal(t, 500, opts.TotalRecommended)
	require.NotEmpty(t, opts.VSCodeVersion)
}
