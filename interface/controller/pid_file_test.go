package controller

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "relaunch.pid")
	p := &pidFile{path: path}

	require.NoError(t, p.write())
	pid, alive := ReadPIDFile(path)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, alive)

	require.NoError(t, p.remove())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// 二回目の削除はエラーにならない
	require.NoError(t, p.remove())
}

func TestPIDFile_KeepsFileOfOtherProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relaunch.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getpid()+1)), 0644))

	require.NoError(t, (&pidFile{path: path}).remove())
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestReadPIDFile_Missing(t *testing.T) {
	pid, alive := ReadPIDFile(filepath.Join(t.TempDir(), "none.pid"))
	assert.Zero(t, pid)
	assert.False(t, alive)

	pid, alive = ReadPIDFile("")
	assert.Zero(t, pid)
	assert.False(t, alive)
}

func TestPIDFile_Disabled(t *testing.T) {
	p := &pidFile{}
	assert.NoError(t, p.write())
	assert.NoError(t, p.remove())
}
