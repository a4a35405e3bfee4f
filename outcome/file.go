package outcome

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"code.linksmart.eu/dt/pupdate/model"
	log "github.com/sirupsen/logrus"
)

const (
	stdoutSuffix = ".stdout.log"
	stderrSuffix = ".stderr.log"
	sinkFile     = "file"
)

// NewRunDir creates the run-scoped log directory under base, named after the start time.
//	When a directory with that name exists already, the first characters of runID are appended
//	so that a run never writes into the logs of another.
func NewRunDir(base string, now time.Time, runID string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("no log directory given")
	}
	err := os.MkdirAll(base, 0755)
	if err != nil {
		return "", fmt.Errorf("error creating log directory: %s", err)
	}

	name := now.UTC().Format(time.RFC3339)
	dir := filepath.Join(base, name)
	err = os.Mkdir(dir, 0755)
	if os.IsExist(err) {
		suffix := runID
		if len(suffix) > 8 {
			suffix = suffix[:8]
		}
		dir = filepath.Join(base, name+"-"+suffix)
		err = os.Mkdir(dir, 0755)
	}
	if err != nil {
		return "", fmt.Errorf("error creating run log directory: %s", err)
	}
	log.Println("Run log directory:", dir)
	return dir, nil
}

// FileRecorder writes <target>.stdout.log and <target>.stderr.log into a run directory
type FileRecorder struct {
	dir string
}

func NewFileRecorder(dir string) *FileRecorder {
	return &FileRecorder{dir: dir}
}

func (r *FileRecorder) Dir() string {
	return r.dir
}

func (r *FileRecorder) Record(o model.Outcome) error {
	name := FileName(o.Target)
	err := ioutil.WriteFile(filepath.Join(r.dir, name+stdoutSuffix), o.Stdout, 0644)
	if err != nil {
		return &LogWriteError{Target: o.Target, Sink: sinkFile, Err: err}
	}
	err = ioutil.WriteFile(filepath.Join(r.dir, name+stderrSuffix), o.Stderr, 0644)
	if err != nil {
		return &LogWriteError{Target: o.Target, Sink: sinkFile, Err: err}
	}
	return nil
}

// FileName returns the deterministic file name prefix for a target
func FileName(target string) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(target)
	if name == "" || name == "." || name == ".." {
		name = "_" + name
	}
	return name
}
