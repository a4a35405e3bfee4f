package outcome

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"code.linksmart.eu/dt/pupdate/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRecorder_WritesBothStreams(t *testing.T) {
	dir := t.TempDir()
	r := NewFileRecorder(dir)

	err := r.Record(model.Outcome{
		Target: "user@host-1",
		Stdout: []byte("upgraded 3 packages\n"),
		Stderr: []byte("warning\n"),
	})
	require.NoError(t, err)

	out, err := ioutil.ReadFile(filepath.Join(dir, "user@host-1.stdout.log"))
	require.NoError(t, err)
	assert.Equal(t, "upgraded 3 packages\n", string(out))

	errOut, err := ioutil.ReadFile(filepath.Join(dir, "user@host-1.stderr.log"))
	require.NoError(t, err)
	assert.Equal(t, "warning\n", string(errOut))
}

func TestFileRecorder_EmptyStreamsStillCreateFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewFileRecorder(dir).Record(model.Outcome{Target: "b"}))

	for _, name := range []string{"b.stdout.log", "b.stderr.log"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Zero(t, info.Size())
	}
}

func TestFileRecorder_MissingDirIsLogWriteError(t *testing.T) {
	r := NewFileRecorder(filepath.Join(t.TempDir(), "gone"))

	err := r.Record(model.Outcome{Target: "a", Succeeded: true})
	require.Error(t, err)
	var lwe *LogWriteError
	require.True(t, errors.As(err, &lwe))
	assert.Equal(t, "a", lwe.Target)
	assert.Equal(t, sinkFile, lwe.Sink)
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"host":          "host",
		"user@host:22":  "user@host:22",
		"a/b":           "a_b",
		`a\b`:           "a_b",
		"":              "_",
		".":             "_.",
		"..":            "_..",
		"../etc/passwd": ".._etc_passwd",
	}
	for in, want := range cases {
		assert.Equal(t, want, FileName(in), "target %q", in)
	}
}

func TestNewRunDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	first, err := NewRunDir(base, now, "0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "2024-03-01T12:30:00Z"), first)

	// same second, different run
	second, err := NewRunDir(base, now, "fedcba9876543210")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "2024-03-01T12:30:00Z-fedcba98"), second)

	for _, dir := range []string{first, second} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestNewRunDir_NoBase(t *testing.T) {
	_, err := NewRunDir("", time.Now(), "x")
	assert.Error(t, err)
}
