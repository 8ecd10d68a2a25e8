package storagesvc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core"
)

func TestDiskStorage_Save(t *testing.T) {
	conf := core.NewTestConfig()
	conf.MediaDir = t.TempDir()
	s := NewDiskStorage(conf)

	url, err := s.Save(context.Background(), "profile-pictures/a.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "/media/profile-pictures/a.png", url)

	data, err := os.ReadFile(filepath.Join(conf.MediaDir, "profile-pictures", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	url, err = s.Save(context.Background(), "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err, "names are confined to the media dir")
	assert.Equal(t, "/media/etc/passwd", url)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Save(ctx, "cancelled.txt", strings.NewReader("x"))
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(conf.MediaDir, "cancelled.txt"))
	assert.True(t, os.IsNotExist(statErr))
}
