package confkit_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"btcdigest/pkg/confkit"
)

func TestResolvePath(t *testing.T) {
	t.Setenv("DIGEST_ETC", "/srv/digest/etc")
	t.Setenv("REL_DIR", "conf")

	tests := []struct {
		name     string
		base     string
		file     string
		expected string
	}{
		{name: "absolute path", base: "/base/dir", file: "/absolute/market.yaml", expected: "/absolute/market.yaml"},
		{name: "relative path", base: "/base/dir", file: "etc/market.yaml", expected: "/base/dir/etc/market.yaml"},
		{name: "env to absolute", base: "/base/dir", file: "$DIGEST_ETC/market.yaml", expected: "/srv/digest/etc/market.yaml"},
		{name: "env to relative", base: "/base/dir", file: "${REL_DIR}/market.yaml", expected: "/base/dir/conf/market.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, confkit.ResolvePath(tt.base, tt.file))
		})
	}
}

func TestBaseDir(t *testing.T) {
	require.Equal(t, "/etc/digest", confkit.BaseDir("/etc/digest/digest.yaml"))
	require.Equal(t, "/", confkit.BaseDir("/digest.yaml"))
	require.Equal(t, "etc", confkit.BaseDir("etc/digest.yaml"))
}

func TestSectionHydrate(t *testing.T) {
	t.Run("empty file", func(t *testing.T) {
		section := &confkit.Section[string]{}
		err := section.Hydrate("/base", func(string) (*string, error) {
			t.Fatal("loader should not be called for empty file")
			return nil, nil
		})
		require.NoError(t, err)
		require.False(t, section.Loaded())
	})

	t.Run("successful hydration", func(t *testing.T) {
		section := &confkit.Section[string]{File: "market.yaml"}
		want := "loaded"
		err := section.Hydrate("/base", func(path string) (*string, error) {
			require.Equal(t, "/base/market.yaml", path)
			return &want, nil
		})
		require.NoError(t, err)
		require.True(t, section.Loaded())
		require.Equal(t, want, *section.Value)
		require.Equal(t, "/base/market.yaml", section.File)
	})

	t.Run("loader error names the file", func(t *testing.T) {
		boom := errors.New("boom")
		section := &confkit.Section[string]{File: "market.yaml"}
		err := section.Hydrate("/base", func(string) (*string, error) { return nil, boom })
		require.ErrorIs(t, err, boom)
		require.Contains(t, err.Error(), "/base/market.yaml")
		require.Equal(t, "market.yaml", section.File)
	})
}

func TestProjectPath(t *testing.T) {
	root, err := confkit.ProjectRoot()
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "go.mod"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "etc", "market.yaml"), confkit.MustProjectPath("etc/market.yaml"))
}
