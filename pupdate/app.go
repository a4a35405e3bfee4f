package main

import (
	"context"
	"errors"
	"io"
	"time"

	"code.linksmart.eu/dt/pupdate/api"
	"code.linksmart.eu/dt/pupdate/config"
	"code.linksmart.eu/dt/pupdate/executor"
	"code.linksmart.eu/dt/pupdate/fleet"
	"code.linksmart.eu/dt/pupdate/model"
	"code.linksmart.eu/dt/pupdate/outcome"
	"code.linksmart.eu/dt/pupdate/progress"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
)

const (
	phaseRemote     = "remote"
	shutdownTimeout = 5 * time.Second
)

var errInterrupted = errors.New("interrupted")

// app is one invocation of pupdate
type app struct {
	conf    *config.Config
	runConf model.RunConfiguration
	runID   string
	stdout  io.Writer // summary
	stderr  io.Writer // live progress
	now     func() time.Time

	remote executor.Executor
	local  executor.Executor

	// set up by run
	recorder outcome.Recorder
	bus      *progress.Bus
	mqtt     *progress.MQTT
	api      *api.RESTAPI
}

func newApp(conf *config.Config, runConf model.RunConfiguration, stdout, stderr io.Writer) (*app, error) {
	a := &app{
		conf:    conf,
		runConf: runConf,
		runID:   uuid.NewV4().String(),
		stdout:  stdout,
		stderr:  stderr,
		now:     time.Now,
		local:   executor.NewLocal(executor.ExecRunner{}, conf.Local.Refresh, conf.Local.Upgrade),
	}

	var transport executor.Transport
	switch conf.Transport {
	case config.TransportNative:
		transport = executor.NewSSHTransport(executor.SSHConfig{
			User:           conf.SSH.User,
			KeyPath:        conf.SSH.Key,
			Passphrase:     conf.SSH.Passphrase,
			KnownHosts:     conf.SSH.KnownHosts,
			StrictHostKey:  conf.SSH.StrictHostKey,
			ConnectTimeout: conf.SSH.ConnectTimeout,
		})
	case config.TransportSSH:
		transport = executor.NewShellTransport(executor.ExecRunner{}, conf.SSH.Binary, conf.SSH.Args...)
	default:
		return nil, &config.ConfigError{Err: errors.New("unknown transport: " + conf.Transport)}
	}
	a.remote = executor.NewRemote(transport, conf.RemoteCommand)
	return a, nil
}

// run executes the remote phase, then the local phase, then the post-run steps.
//	It returns errInterrupted when ctx was cancelled before the run completed.
func (a *app) run(ctx context.Context) error {
	logger := log.WithField("run", a.runID)
	logger.Debugf("Run configuration: %+v", a.runConf)

	var runDir string
	a.recorder = outcome.Discard
	if a.runConf.LogDir != "" {
		var err error
		runDir, err = outcome.NewRunDir(a.runConf.LogDir, a.now(), a.runID)
		if err != nil {
			return err
		}
		a.recorder = outcome.NewFileRecorder(runDir)
	}
	a.startSinks()
	defer a.stopSinks()

	summaries := make(map[string]model.Summary)
	interrupted := false

	if !a.runConf.RemoteUpdate {
		printLocalMode(a.stdout)
	} else if targets := a.runConf.RemoteTargets(); len(targets) != 0 {
		printRemoteStart(a.stdout, len(targets))
		o := fleet.New(a.remote, a.recorder, progress.Multi(a.reporters(true)))
		o.Workers = a.conf.Workers
		o.RunID = a.runID

		s := o.Run(ctx, targets)
		printRemoteSummary(a.stdout, s)
		summaries[phaseRemote] = s
		interrupted = s.Interrupted
		if a.api != nil {
			a.api.SetSummary(phaseRemote, s)
		}
	}

	if a.runConf.LocalUpdate && !interrupted && ctx.Err() == nil {
		printLocalStart(a.stdout)
		o := fleet.New(a.local, a.recorder, progress.Multi(a.reporters(false)))
		o.RunID = a.runID

		s := o.Run(ctx, []string{model.LocalTarget})
		printLocalSummary(a.stdout, s)
		summaries[model.LocalTarget] = s
		interrupted = s.Interrupted
		if a.api != nil {
			a.api.SetSummary(model.LocalTarget, s)
		}
	}

	if runDir != "" {
		a.postRun(runDir, summaries)
	}

	if interrupted || ctx.Err() != nil {
		return errInterrupted
	}

	if a.api != nil {
		logger.Warnf("Run finished, serving status on %s until interrupted", a.conf.Listen)
		<-ctx.Done()
	}
	return nil
}

// startSinks sets up the optional outcome and progress sinks, continuing without the ones that fail
func (a *app) startSinks() {
	a.bus = progress.NewBus(a.runID)

	if a.conf.Elastic.URL != "" {
		r, err := outcome.StartElasticRecorder(a.conf.Elastic.URL, a.conf.Elastic.Index, a.runID)
		if err != nil {
			log.Errorf("Elasticsearch disabled: %s", err)
		} else {
			a.recorder = outcome.Multi{a.recorder, r}
		}
	}

	if a.conf.MQTT.Broker != "" {
		m, err := progress.StartMQTT(a.conf.MQTT.Broker, a.conf.MQTT.Topic, a.conf.MQTT.ClientID, a.runID)
		if err != nil {
			log.Errorf("MQTT disabled: %s", err)
		} else {
			a.mqtt = m
		}
	}

	if a.conf.Listen != "" {
		a.api = api.New(api.Info{
			RunID:        a.runID,
			StartedAt:    a.now(),
			Remotes:      a.runConf.Targets,
			RemoteUpdate: a.runConf.RemoteUpdate,
			LocalUpdate:  a.runConf.LocalUpdate,
			LogDir:       a.runConf.LogDir,
		}, a.bus)
		a.api.Start(a.conf.Listen)
	}
}

func (a *app) stopSinks() {
	if a.mqtt != nil {
		a.mqtt.Close()
	}
	// the API goes first, open event streams end with the bus
	if a.api != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.api.Shutdown(ctx); err != nil {
			log.Errorf("Error shutting down the API: %s", err)
		}
	}
	a.bus.Close()
}

// reporters returns the progress reporters of a phase; the console only renders remotes
func (a *app) reporters(console bool) []progress.Reporter {
	reporters := []progress.Reporter{a.bus}
	if console {
		reporters = append(reporters, progress.NewConsole(a.stderr))
	}
	if a.mqtt != nil {
		reporters = append(reporters, a.mqtt)
	}
	return reporters
}

// postRun writes the summary file, then optionally archives and mirrors the run directory.
//	Failures are logged only.
func (a *app) postRun(runDir string, summaries map[string]model.Summary) {
	err := outcome.WriteSummaries(runDir, summaries)
	if err != nil {
		log.Errorf("%s", err)
	}
	if a.conf.Archive {
		dest, err := outcome.Archive(runDir)
		if err != nil {
			log.Errorf("%s", err)
		} else {
			log.Println("Archived logs to", dest)
		}
	}
	if a.conf.Latest {
		latest, err := outcome.MirrorLatest(a.runConf.LogDir, runDir)
		if err != nil {
			log.Errorf("%s", err)
		} else {
			log.Println("Mirrored logs to", latest)
		}
	}
}
