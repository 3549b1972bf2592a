package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(Default(), cfg))

	path := filepath.Join(t.TempDir(), "ohlg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
params: test
workers: 8
redis:
  addr: redis:6379
  db: 2
`), 0600))

	cfg, err = Load(path)
	require.NoError(t, err)

	want := Default()
	want.Params = "test"
	want.Workers = 8
	want.Redis.Addr = "redis:6379"
	want.Redis.DB = 2
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	for name, body := range map[string]string{
		"params":  "params: nope\n",
		"workers": "workers: -1\n",
		"trials":  "trials: -3\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0600))
			_, err := Load(path)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [1"), 0600))
	_, err = Load(path)
	require.Error(t, err)
}
