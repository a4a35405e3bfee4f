package outcome

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"time"

	"code.linksmart.eu/dt/pupdate/model"
	"gopkg.in/yaml.v2"
)

const SummaryFile = "summary.yaml"

type summaryFile struct {
	RunID       string   `yaml:"run_id"`
	Phase       string   `yaml:"phase"`
	Total       int      `yaml:"total"`
	Succeeded   []string `yaml:"succeeded"`
	Failed      []string `yaml:"failed"`
	Unfinished  []string `yaml:"unfinished,omitempty"`
	Duration    string   `yaml:"duration"`
	Interrupted bool     `yaml:"interrupted,omitempty"`
}

// WriteSummaries writes the summaries of a run's phases (remote, local) to summary.yaml in dir
func WriteSummaries(dir string, phases map[string]model.Summary) error {
	var docs []summaryFile
	for _, phase := range []string{"remote", model.LocalTarget} {
		s, found := phases[phase]
		if !found {
			continue
		}
		docs = append(docs, summaryFile{
			RunID:       s.RunID,
			Phase:       phase,
			Total:       s.Total,
			Succeeded:   s.Succeeded,
			Failed:      s.Failed,
			Unfinished:  s.Unfinished,
			Duration:    s.Duration.Round(time.Millisecond).String(),
			Interrupted: s.Interrupted,
		})
	}

	b, err := yaml.Marshal(docs)
	if err != nil {
		return fmt.Errorf("error encoding summary: %s", err)
	}
	err = ioutil.WriteFile(filepath.Join(dir, SummaryFile), b, 0644)
	if err != nil {
		return fmt.Errorf("error writing summary: %s", err)
	}
	return nil
}
