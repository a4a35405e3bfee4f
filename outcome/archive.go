package outcome

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mholt/archiver"
	copier "github.com/otiai10/copy"
	log "github.com/sirupsen/logrus"
)

const LatestDir = "latest"

// Archive compresses the run directory into <dir>.tar.gz next to it
func Archive(dir string) (string, error) {
	dest := filepath.Clean(dir) + ".tar.gz"
	log.Debugf("Compressing %s to %s", dir, dest)
	err := archiver.TarGz.Make(dest, []string{dir})
	if err != nil {
		return "", fmt.Errorf("error compressing logs: %s", err)
	}
	return dest, nil
}

// MirrorLatest replaces <base>/latest with a copy of the run directory
func MirrorLatest(base, dir string) (string, error) {
	latest := filepath.Join(base, LatestDir)
	err := os.RemoveAll(latest)
	if err != nil {
		return "", fmt.Errorf("error removing %s: %s", latest, err)
	}
	err = copier.Copy(dir, latest)
	if err != nil {
		return "", fmt.Errorf("error copying logs to %s: %s", latest, err)
	}
	return latest, nil
}
