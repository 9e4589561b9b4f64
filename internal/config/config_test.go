package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TACHI_HOME", dir)
	return dir
}

func TestLoadMerged_NoProfileUsesDefaults(t *testing.T) {
	useTempRoot(t)

	cfg, used, err := LoadMerged(Options{Output: "/tmp/out", ImageWorkers: 9})
	require.NoError(t, err)

	assert.Contains(t, used, "default config in memory")
	assert.Equal(t, "/tmp/out", cfg.Output)
	assert.Equal(t, 9, cfg.ImageWorkers)
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, "http://127.0.0.1:7878/proxy", cfg.ProxyBase())
}

func TestLoadMerged_ActiveProfile(t *testing.T) {
	useTempRoot(t)

	path, err := InitDefaultConfig()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("listen: 0.0.0.0:9000\ncloudflare_bypass: true\n"), 0644))

	cfg, used, err := LoadMerged(Options{Debug: true})
	require.NoError(t, err)

	assert.Equal(t, path, used)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.True(t, cfg.CloudflareBypass)
	assert.True(t, cfg.Debug)
	assert.Equal(t, defaultImageWorkers, cfg.ImageWorkers)
	assert.Equal(t, defaultProxyPath, cfg.ProxyPath)
}

func TestLoadMerged_IgnoreConfig(t *testing.T) {
	useTempRoot(t)

	path, err := InitDefaultConfig()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("listen: 0.0.0.0:9000\n"), 0644))

	cfg, used, err := LoadMerged(Options{IgnoreConfig: true})
	require.NoError(t, err)
	assert.Equal(t, "(ignored config)", used)
	assert.Equal(t, defaultListen, cfg.Listen)
}

func TestLoadMerged_Invalid(t *testing.T) {
	useTempRoot(t)

	_, _, err := LoadMerged(Options{IgnoreConfig: true, DefaultURL: "not a url"})
	assert.Error(t, err)

	_, _, err = LoadMerged(Options{IgnoreConfig: true, ImageWorkers: 500})
	assert.Error(t, err)
}

func TestProfiles(t *testing.T) {
	root := useTempRoot(t)

	_, err := CurrentLabel()
	assert.ErrorIs(t, err, ErrNoConfig)

	_, err = InitDefaultConfig()
	require.NoError(t, err)

	_, err = InitDefaultConfig()
	assert.ErrorIs(t, err, os.ErrExist)

	work, err := CreateEmptyConfig("work")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "configs", "work.yaml"), work)

	_, err = CreateEmptyConfig("work")
	assert.Error(t, err)

	require.NoError(t, SwitchConfig("work"))
	label, err := CurrentLabel()
	require.NoError(t, err)
	assert.Equal(t, "work", label)

	require.NoError(t, RenameConfig("work", "office"))
	label, _ = CurrentLabel()
	assert.Equal(t, "office", label)

	list, err := ListConfigs()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, DefaultLabel, list[0].Label)
	assert.Equal(t, "office", list[1].Label)
	assert.True(t, list[1].Active)

	path, err := ConfigPathByLabel("office")
	require.NoError(t, err)
	assert.FileExists(t, path)

	switched, err := RemoveConfig("office")
	require.NoError(t, err)
	assert.True(t, switched)
	label, _ = CurrentLabel()
	assert.Equal(t, DefaultLabel, label)

	_, err = RemoveConfig(DefaultLabel)
	assert.Error(t, err)

	_, err = ConfigPathByLabel("office")
	assert.Error(t, err)
}

func TestAddConfig_Validates(t *testing.T) {
	root := useTempRoot(t)

	good := filepath.Join(root, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("image_workers: 3\n"), 0644))
	require.NoError(t, AddConfig("good", good))

	cfg, err := LoadYAML(profilePath("good"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.ImageWorkers)
	assert.Equal(t, defaultListen, cfg.Listen)

	bad := filepath.Join(root, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("proxy_path: nope\n"), 0644))
	assert.Error(t, AddConfig("bad", bad))
	assert.Error(t, AddConfig("good", good))
}
