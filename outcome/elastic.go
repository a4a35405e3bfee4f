package outcome

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"time"

	"code.linksmart.eu/dt/pupdate/model"
	"github.com/olivere/elastic"
	log "github.com/sirupsen/logrus"
)

const (
	envElasticDebug     = "DEBUG_ELASTIC"
	DefaultElasticIndex = "pupdate-outcomes"
	typeFixed           = "_doc"
	mappingStrict       = "strict"
	propTypeKeyword     = "keyword"
	propTypeDate        = "date"
	propTypeText        = "text"
	propTypeBool        = "boolean"
	propTypeLong        = "long"
	sinkElastic         = "elastic"
)

type mapping struct {
	Settings struct {
		Shards          int    `json:"number_of_shards"`
		Replicas        int    `json:"number_of_replicas"`
		RefreshInterval string `json:"refresh_interval"`
	} `json:"settings"`
	Mappings struct {
		Doc struct {
			Dynamic string                 `json:"dynamic"`
			Prop    map[string]mappingProp `json:"properties"`
		} `json:"_doc"`
	} `json:"mappings"`
}

type mappingProp struct {
	Type string `json:"type,omitempty"`
}

// document is the stored form of an outcome
type document struct {
	RunID      string    `json:"runId"`
	Target     string    `json:"target"`
	Succeeded  bool      `json:"succeeded"`
	ExitCode   int       `json:"exitCode"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	ElapsedMs  int64     `json:"elapsedMs"`
	Stdout     string    `json:"stdout"`
	Stderr     string    `json:"stderr"`
	Error      string    `json:"error,omitempty"`
}

func newDocument(runID string, o model.Outcome) document {
	d := document{
		RunID:      runID,
		Target:     o.Target,
		Succeeded:  o.Succeeded,
		ExitCode:   o.ExitCode,
		StartedAt:  o.StartedAt,
		FinishedAt: o.FinishedAt,
		ElapsedMs:  int64(o.Elapsed() / time.Millisecond),
		Stdout:     string(o.Stdout),
		Stderr:     string(o.Stderr),
	}
	if o.Err != nil {
		d.Error = o.Err.Error()
	}
	return d
}

// ElasticRecorder indexes one document per outcome into Elasticsearch
type ElasticRecorder struct {
	client *elastic.Client
	ctx    context.Context
	index  string
	runID  string
}

// StartElasticRecorder creates an Elasticsearch client. It
//  - waits for the server (few attempts)
//  - creates the outcome index (if missing)
func StartElasticRecorder(url, index, runID string) (*ElasticRecorder, error) {
	log.Println("Elasticsearch URL:", url)
	ctx := context.Background()
	if index == "" {
		index = DefaultElasticIndex
	}

	opts := []elastic.ClientOptionFunc{elastic.SetURL(url)}
	if os.Getenv(envElasticDebug) == "1" {
		opts = append(opts, elastic.SetTraceLog(stdlog.New(os.Stdout, "[Elastic Debug] ", 0)))
	}

	client, err := elastic.NewSimpleClient(opts...)
	if err != nil {
		return nil, err
	}

	const maxAttempts = 3
	for attempts := 1; ; attempts++ {
		info, code, err := client.Ping(url).Do(ctx)
		if err != nil {
			log.Printf("Elasticsearch ping error (attempt %d/%d): %s", attempts, maxAttempts, err)
			if attempts < maxAttempts {
				time.Sleep(time.Duration(attempts) * time.Second)
				continue
			}
			return nil, fmt.Errorf("failed to reach Elasticsearch within %d attempts", maxAttempts)
		}
		log.Printf("Elasticsearch returned with code %d and version %s", code, info.Version.Number)
		break
	}

	r := &ElasticRecorder{
		client: client,
		ctx:    ctx,
		index:  index,
		runID:  runID,
	}

	var m mapping
	m.Settings.Shards = 1
	m.Settings.Replicas = 0
	m.Settings.RefreshInterval = "1s"
	m.Mappings.Doc.Dynamic = mappingStrict
	m.Mappings.Doc.Prop = map[string]mappingProp{
		"runId":      {Type: propTypeKeyword},
		"target":     {Type: propTypeKeyword},
		"succeeded":  {Type: propTypeBool},
		"exitCode":   {Type: propTypeLong},
		"startedAt":  {Type: propTypeDate},
		"finishedAt": {Type: propTypeDate},
		"elapsedMs":  {Type: propTypeLong},
		"stdout":     {Type: propTypeText},
		"stderr":     {Type: propTypeText},
		"error":      {Type: propTypeText},
	}
	err = r.createIndex(m)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (r *ElasticRecorder) createIndex(m mapping) error {
	exists, err := r.client.IndexExists(r.index).Do(r.ctx)
	if err != nil {
		return fmt.Errorf("error checking index %s: %s", r.index, err)
	}
	if exists {
		return nil
	}
	createIndex, err := r.client.CreateIndex(r.index).BodyJson(m).Do(r.ctx)
	if err != nil {
		return fmt.Errorf("error creating index %s: %s", r.index, err)
	}
	if !createIndex.Acknowledged {
		return fmt.Errorf("index creation not acknowledged: %s", r.index)
	}
	log.Println("Created index:", r.index)
	return nil
}

func (r *ElasticRecorder) Record(o model.Outcome) error {
	_, err := r.client.Index().
		Index(r.index).
		Type(typeFixed).
		Id(r.runID + "-" + o.Target).
		BodyJson(newDocument(r.runID, o)).
		Do(r.ctx)
	if err != nil {
		return &LogWriteError{Target: o.Target, Sink: sinkElastic, Err: err}
	}
	return nil
}
