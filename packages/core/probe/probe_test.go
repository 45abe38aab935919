package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatFile_RegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.ini")
	require.NoError(t, os.WriteFile(path, []byte("authenticator = standalone\n"), 0640))
	require.NoError(t, os.Chmod(path, 0640))

	f := StatFile(path)
	require.NoError(t, f.Err())
	assert.True(t, f.Exists)
	assert.False(t, f.Symlink)
	assert.Equal(t, TypeFile, f.Type)
	assert.Equal(t, int64(27), f.Size)
	assert.Equal(t, int64(0o640), f.UnixMode())
	assert.Equal(t, uint32(os.Getuid()), f.UID)
	assert.NotEmpty(t, f.Owner)
	assert.NotEmpty(t, f.Group)
}

func TestStatFile_Directory(t *testing.T) {
	f := StatFile(t.TempDir())
	require.NoError(t, f.Err())
	assert.Equal(t, TypeDirectory, f.Type)
}

func TestStatFile_Missing(t *testing.T) {
	f := StatFile(filepath.Join(t.TempDir(), "absent"))
	assert.False(t, f.Exists)
	assert.True(t, errors.Is(f.Err(), ErrNotFound))
}

func TestStatFile_Symlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))
	require.NoError(t, os.Symlink(target, link))

	f := StatFile(link)
	require.NoError(t, f.Err())
	assert.True(t, f.Symlink)
	assert.Equal(t, TypeFile, f.Type)
}

func TestStatFile_DanglingSymlink(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing"), link))

	f := StatFile(link)
	assert.False(t, f.Exists)
	assert.True(t, f.Symlink)
	assert.True(t, errors.Is(f.Err(), ErrNotFound))
}

func TestFile_Permits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.ini")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	tests := []struct {
		mode    os.FileMode
		mask    uint32
		allowed bool
	}{
		{0o644, AccessRead, true},
		{0o644, AccessWrite, true},
		{0o644, AccessExecute, false},
		{0o000, AccessRead, false},
		{0o040, AccessRead, true},
		{0o001, AccessExecute, true},
	}

	for _, tt := range tests {
		require.NoError(t, os.Chmod(path, tt.mode))
		err := StatFile(path).Permits(tt.mask)
		if tt.allowed {
			assert.NoError(t, err, "mode %04o mask %04o", tt.mode, tt.mask)
			continue
		}
		assert.True(t, errors.Is(err, ErrPermissionDenied), "mode %04o mask %04o", tt.mode, tt.mask)
	}
}

func TestStatFile_PermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	dir := filepath.Join(t.TempDir(), "locked")
	require.NoError(t, os.Mkdir(dir, 0755))
	path := filepath.Join(dir, "cli.ini")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.NoError(t, os.Chmod(dir, 0))
	t.Cleanup(func() { _ = os.Chmod(dir, 0755) })

	f := StatFile(path)
	assert.True(t, errors.Is(f.Err(), ErrPermissionDenied))
}

func TestFile_ReadContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	data, err := StatFile(path).ReadContent()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = StatFile(path + ".missing").ReadContent()
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestExecutor_Run(t *testing.T) {
	e := NewExecutor()

	t.Run("captures both streams", func(t *testing.T) {
		res, err := e.Run(context.Background(), "printf '* dns-powerdns\\n'; printf 'warn' >&2")
		require.NoError(t, err)
		assert.Equal(t, "* dns-powerdns\n", res.Stdout)
		assert.Equal(t, "warn", res.Stderr)
		assert.Equal(t, 0, res.ExitStatus)
	})

	t.Run("non-zero exit is not an error", func(t *testing.T) {
		res, err := e.Run(context.Background(), "echo out; exit 3")
		require.NoError(t, err)
		assert.Equal(t, 3, res.ExitStatus)
		assert.Equal(t, "out\n", res.Stdout)
	})

	t.Run("missing binary", func(t *testing.T) {
		_, err := e.Run(context.Background(), "/nonexistent/bin/certbot plugins")
		assert.True(t, errors.Is(err, ErrExecution))
	})

	t.Run("empty command", func(t *testing.T) {
		_, err := e.Run(context.Background(), "   ")
		assert.True(t, errors.Is(err, ErrExecution))
	})
}

func TestExecutor_DirectExec(t *testing.T) {
	e := NewExecutor(WithShell(""))

	_, err := e.Run(context.Background(), "/nonexistent/bin/certbot plugins")
	assert.True(t, errors.Is(err, ErrExecution))

	res, err := e.Run(context.Background(), "echo dns-powerdns")
	require.NoError(t, err)
	assert.Equal(t, "dns-powerdns\n", res.Stdout)
}

func TestExecutor_Timeout(t *testing.T) {
	e := NewExecutor(WithTimeout(100 * time.Millisecond))

	start := time.Now()
	_, err := e.Run(context.Background(), "sleep 5")
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestExecutor_Dir(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	res, err := NewExecutor(WithDir(dir)).Run(context.Background(), "pwd -P")
	require.NoError(t, err)
	assert.Equal(t, dir+"\n", res.Stdout)
}
