package configstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/core"
)

func testStore(t *testing.T, watch bool) *Store {
	t.Helper()
	s, err := New("default", filepath.Join(t.TempDir(), "config.yaml"), watch)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := testStore(t, false)

	require.NoError(t, s.Save("checkout", []core.ConfigurationItem{
		{Key: "feature.fast_path", Value: "on", Group: "flags", Label: "prod"},
		{Key: "timeout_ms", Value: "2500"},
	}))

	items := s.Get("checkout", Selector{})
	require.Len(t, items, 2)

	items = s.Get("checkout", Selector{Keys: []string{"timeout_ms"}})
	require.Len(t, items, 1)
	assert.Equal(t, "2500", items[0].Value)

	items = s.Get("checkout", Selector{Group: "flags", Label: "prod"})
	require.Len(t, items, 1)
	assert.Equal(t, "feature.fast_path", items[0].Key)

	assert.Empty(t, s.Get("other-app", Selector{}))
}

func TestSaveUpsertsByKeyGroupLabel(t *testing.T) {
	s := testStore(t, false)

	require.NoError(t, s.Save("app", []core.ConfigurationItem{{Key: "k", Value: "1", Group: "g"}}))
	require.NoError(t, s.Save("app", []core.ConfigurationItem{{Key: "k", Value: "2", Group: "g"}}))
	require.NoError(t, s.Save("app", []core.ConfigurationItem{{Key: "k", Value: "other-group"}}))

	items := s.Get("app", Selector{Keys: []string{"k"}, Group: "g"})
	require.Len(t, items, 1)
	assert.Equal(t, "2", items[0].Value)

	assert.Len(t, s.Get("app", Selector{Keys: []string{"k"}}), 2)
}

func TestDelete(t *testing.T) {
	s := testStore(t, false)

	require.NoError(t, s.Save("app", []core.ConfigurationItem{
		{Key: "a", Value: "1", Group: "g1"},
		{Key: "b", Value: "2", Group: "g2"},
	}))
	require.NoError(t, s.Delete("app", Selector{Group: "g1"}))

	items := s.Get("app", Selector{})
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].Key)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	first, err := New("default", path, false)
	require.NoError(t, err)
	require.NoError(t, first.Save("app", []core.ConfigurationItem{
		{Key: "k", Value: "v", Version: "3", Tags: core.Metadata{"team": "infra"}},
	}))
	require.NoError(t, first.Close())

	second, err := New("default", path, false)
	require.NoError(t, err)
	defer second.Close()

	want := []core.ConfigurationItem{
		{Key: "k", Value: "v", Version: "3", Tags: core.Metadata{"team": "infra"}},
	}
	if diff := cmp.Diff(want, second.Get("app", Selector{Keys: []string{"k"}})); diff != "" {
		t.Errorf("items after reopen mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscribeReceivesSavedItems(t *testing.T) {
	s := testStore(t, false)

	sub := s.Subscribe("app", Selector{Keys: []string{"watched"}})
	defer sub.Close()

	require.NoError(t, s.Save("app", []core.ConfigurationItem{
		{Key: "watched", Value: "new"},
		{Key: "ignored", Value: "x"},
	}))

	select {
	case update := <-sub.C:
		assert.Equal(t, "default", update.StoreName)
		assert.Equal(t, "app", update.AppID)
		require.Len(t, update.Items, 1)
		assert.Equal(t, "watched", update.Items[0].Key)
		assert.Equal(t, "new", update.Items[0].Value)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestSubscribeSeesExternalFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s, err := New("default", path, true)
	require.NoError(t, err)
	defer s.Close()

	sub := s.Subscribe("app", Selector{})
	defer sub.Close()

	content := "apps:\n  app:\n    - key: external\n      value: edited\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	select {
	case update := <-sub.C:
		require.Len(t, update.Items, 1)
		assert.Equal(t, "external", update.Items[0].Key)
		assert.Equal(t, "edited", update.Items[0].Value)
	case <-time.After(3 * time.Second):
		t.Fatal("file change not observed")
	}
}

func TestUnsubscribeApp(t *testing.T) {
	s := testStore(t, false)

	sub := s.Subscribe("app", Selector{})
	s.UnsubscribeApp("app")

	_, open := <-sub.C
	assert.False(t, open)
}
