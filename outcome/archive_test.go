package outcome

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"code.linksmart.eu/dt/pupdate/model"
	"github.com/mholt/archiver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func newRunWithLogs(t *testing.T) (base, dir string) {
	base = t.TempDir()
	dir, err := NewRunDir(base, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "run")
	require.NoError(t, err)
	r := NewFileRecorder(dir)
	require.NoError(t, r.Record(model.Outcome{Target: "a", Stdout: []byte("out-a")}))
	require.NoError(t, r.Record(model.Outcome{Target: "b", Stderr: []byte("err-b")}))
	return base, dir
}

func TestArchive(t *testing.T) {
	_, dir := newRunWithLogs(t)

	dest, err := Archive(dir)
	require.NoError(t, err)
	assert.Equal(t, dir+".tar.gz", dest)

	extracted := t.TempDir()
	require.NoError(t, archiver.TarGz.Open(dest, extracted))
	b, err := ioutil.ReadFile(filepath.Join(extracted, filepath.Base(dir), "a.stdout.log"))
	require.NoError(t, err)
	assert.Equal(t, "out-a", string(b))
}

func TestMirrorLatest_ReplacesPreviousCopy(t *testing.T) {
	base, dir := newRunWithLogs(t)

	stale := filepath.Join(base, LatestDir, "old.stdout.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0755))
	require.NoError(t, ioutil.WriteFile(stale, []byte("old"), 0644))

	latest, err := MirrorLatest(base, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, LatestDir), latest)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	b, err := ioutil.ReadFile(filepath.Join(latest, "b.stderr.log"))
	require.NoError(t, err)
	assert.Equal(t, "err-b", string(b))
}

func TestWriteSummaries(t *testing.T) {
	dir := t.TempDir()
	err := WriteSummaries(dir, map[string]model.Summary{
		model.LocalTarget: {RunID: "r1", Total: 1, Succeeded: []string{"local"}, Duration: 1500 * time.Millisecond},
		"remote":          {RunID: "r1", Total: 2, Succeeded: []string{"a"}, Failed: []string{"b"}, Duration: 2 * time.Second},
	})
	require.NoError(t, err)

	b, err := ioutil.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)

	var docs []summaryFile
	require.NoError(t, yaml.Unmarshal(b, &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "remote", docs[0].Phase)
	assert.Equal(t, []string{"b"}, docs[0].Failed)
	assert.Equal(t, "2s", docs[0].Duration)
	assert.Equal(t, model.LocalTarget, docs[1].Phase)
	assert.Equal(t, "1.5s", docs[1].Duration)
}
