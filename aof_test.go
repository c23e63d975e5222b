package main

import (
	"io/ioutil"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aofConfig(t *testing.T) *Config {
	conf := defaultConfig()
	conf.dir = t.TempDir()
	conf.aofEnabled = true
	conf.aofFSync = Always
	return conf
}

func TestAofReplay(t *testing.T) {
	conf := aofConfig(t)
	snap := NewSnapshotFile(conf)

	a, err := OpenAof(conf, snap)
	require.NoError(t, err)
	s := NewStore(nil, a)

	require.NoError(t, s.Set("alpha", "1"))
	require.NoError(t, s.Set("beta", "two words"))
	require.NoError(t, s.Set("alpha", "updated"))
	_, err = s.Remove("beta")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	// a fresh process: hydrate the snapshot, then replay the journal
	a2, err := OpenAof(conf, snap)
	require.NoError(t, err)
	defer a2.Close()

	m := snap.Load()
	require.NoError(t, a2.Replay(m))

	assert.Equal(t, map[string]string{"alpha": "updated"}, m)
}

func TestAofCompaction(t *testing.T) {
	conf := aofConfig(t)
	conf.compactAfter = 3
	snap := NewSnapshotFile(conf)

	a, err := OpenAof(conf, snap)
	require.NoError(t, err)
	s := NewStore(nil, a)

	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))
	require.NoError(t, s.Set("c", "3"))
	require.NoError(t, a.Close())

	// the third record crossed the threshold: the map now lives in the
	// snapshot and the journal is empty
	raw, err := ioutil.ReadFile(path.Join(conf.dir, conf.aofFn))
	require.NoError(t, err)
	assert.Empty(t, raw)
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, snap.Load())

	a2, err := OpenAof(conf, snap)
	require.NoError(t, err)
	defer a2.Close()

	m := snap.Load()
	require.NoError(t, a2.Replay(m))
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, m)
}

func TestAofReplayCountsTowardCompaction(t *testing.T) {
	conf := aofConfig(t)
	conf.compactAfter = 2
	snap := NewSnapshotFile(conf)

	a, err := OpenAof(conf, snap)
	require.NoError(t, err)
	s := NewStore(nil, a)
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, a.Close())

	a2, err := OpenAof(conf, snap)
	require.NoError(t, err)
	m := snap.Load()
	require.NoError(t, a2.Replay(m))
	s2 := NewStore(m, a2)

	// one journaled record survived the restart, so this one compacts
	require.NoError(t, s2.Set("b", "2"))
	require.NoError(t, a2.Close())

	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, snap.Load())
	raw, err := ioutil.ReadFile(path.Join(conf.dir, conf.aofFn))
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestAofReplayStopsOnGarbage(t *testing.T) {
	conf := aofConfig(t)
	snap := NewSnapshotFile(conf)

	a, err := OpenAof(conf, snap)
	require.NoError(t, err)
	s := NewStore(nil, a)
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, a.Close())

	// a torn trailing record must not fail startup
	f, err := os.OpenFile(path.Join(conf.dir, conf.aofFn), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("*3\r\n$3\r\nSET\r\n$1\r")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	a2, err := OpenAof(conf, snap)
	require.NoError(t, err)
	defer a2.Close()

	m := snap.Load()
	require.NoError(t, a2.Replay(m))
	assert.Equal(t, map[string]string{"a": "1"}, m)
}
