package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LegoTypes/synthformula/internal/storage"
	"github.com/LegoTypes/synthformula/internal/types"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewStore(filepath.Join(dir, "sensors.yaml"))

	set := sampleSet()
	require.NoError(t, store.Save(set))

	got, err := store.Load()
	require.NoError(t, err)
	require.Len(t, got.Sensors, len(set.Sensors))

	changed, err := store.Changed()
	require.NoError(t, err)
	require.False(t, changed)
}

func TestStoreChangedDetectsExternalEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensors.yaml")
	store := storage.NewStore(path)
	require.NoError(t, store.Save(sampleSet()))

	edited := sampleSet()
	edited.DeviceIdentifier = "hub-2"
	data, err := storage.Encode(edited)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	changed, err := store.Changed()
	require.NoError(t, err)
	require.True(t, changed)
}

func TestWatcherEmitsChangeOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensors.yaml")
	store := storage.NewStore(path)
	require.NoError(t, store.Save(sampleSet()))

	w, err := storage.NewWatcher(store, nil)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	changes, errs := w.Watch(ctx)

	// Write through the OS directly, simulating an external editor rather
	// than this process's own Store.Save — a self-write already updates
	// the tracked checksum and is correctly treated as a no-op (the
	// watcher exists to catch edits *other* writers make).
	edited := sampleSet()
	edited.DeviceIdentifier = "hub-updated"
	data, err := storage.Encode(edited)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	select {
	case change := <-changes:
		require.Equal(t, "hub-updated", change.Set.DeviceIdentifier)
	case err := <-errs:
		t.Fatalf("unexpected watch error: %v", err)
	case <-ctx.Done():
		t.Fatal("timed out waiting for a watch change")
	}
}

func TestDecodeKeepsUnknownSensorReference(t *testing.T) {
	set := types.SensorSet{
		Name: "demo",
		Sensors: []types.SensorConfig{
			{Key: "a", Main: types.Formula{Text: "nonexistent"}},
		},
	}
	data, err := storage.Encode(set)
	require.NoError(t, err)

	got, err := storage.Decode(data)
	require.NoError(t, err)
	require.Equal(t, "nonexistent", got.Sensors[0].Main.Text)
}
