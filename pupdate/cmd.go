package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"code.linksmart.eu/dt/pupdate/config"
	"code.linksmart.eu/dt/pupdate/model"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	flagLocalOnly     = "local-only"
	flagSkipLocal     = "skip-local"
	flagLogDir        = "log-dir"
	flagConfig        = "config"
	flagWorkers       = "workers"
	flagTransport     = "transport"
	flagRemoteCommand = "remote-command"
	flagArchive       = "archive"
	flagLatest        = "latest"
	flagListen        = "listen"
)

// flag name -> configuration key
var flagBindings = map[string]string{
	flagLogDir:        config.KeyLogDir,
	flagWorkers:       config.KeyWorkers,
	flagTransport:     config.KeyTransport,
	flagRemoteCommand: config.KeyRemoteCommand,
	flagArchive:       config.KeyArchive,
	flagLatest:        config.KeyLatest,
	flagListen:        config.KeyListen,
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "pupdate [remotes...]",
		Short:        "pupdate updates a fleet of remotes and the local system",
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, runConf, err := resolve(cmd, args)
			if err != nil {
				return err
			}

			ctx, stop := notifyContext(cmd.Context())
			defer stop()

			a, err := newApp(conf, runConf, stdout, stderr)
			if err != nil {
				return err
			}
			return a.run(ctx)
		},
	}

	flags := root.PersistentFlags()
	flags.StringP(flagConfig, "c", "", "the config to use as a base (default ~/"+config.FileName+")")
	flags.StringP(flagLogDir, "l", "", "the directory to log to")
	flags.Int(flagWorkers, 0, "maximum number of remotes updated at once (0: all)")
	flags.String(flagTransport, "", "remote transport: ssh (binary) or native")
	flags.String(flagRemoteCommand, "", "command triggering the update on a remote")
	flags.Bool(flagArchive, false, "compress the run logs into a tar.gz archive")
	flags.Bool(flagLatest, false, "mirror the run logs to <log-dir>/latest")
	flags.String(flagListen, "", "serve the live status API on this address")
	root.Flags().Bool(flagLocalOnly, false, "only run pupdates locally")
	root.Flags().Bool(flagSkipLocal, false, "skip local pupdates")

	root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, _, err := resolve(cmd, nil)
			if err != nil {
				return err
			}
			b, err := conf.YAML()
			if err != nil {
				return err
			}
			_, err = stdout.Write(b)
			return err
		},
	})

	return root
}

// resolve merges the configuration file, PUPDATE_* env variables and flags
func resolve(cmd *cobra.Command, args []string) (*config.Config, model.RunConfiguration, error) {
	var runConf model.RunConfiguration

	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, runConf, err
	}
	conf, err := config.Load(path)
	if err != nil {
		return nil, runConf, err
	}

	v, err := config.NewViper(cmd.Flags(), flagBindings)
	if err != nil {
		return nil, runConf, err
	}
	err = conf.ApplyOverrides(v)
	if err != nil {
		return nil, runConf, &config.ConfigError{Err: err}
	}
	if len(args) > 0 {
		conf.Remotes = args
		err = conf.Validate()
		if err != nil {
			return nil, runConf, &config.ConfigError{Err: err}
		}
	}
	if unique := model.UniqueTargets(conf.Remotes); len(unique) != len(conf.Remotes) {
		log.Warnf("Ignoring %d repeated remotes", len(conf.Remotes)-len(unique))
		conf.Remotes = unique
	}

	runConf = model.RunConfiguration{
		Targets:      conf.Remotes,
		LogDir:       conf.LogDir,
		RemoteUpdate: !boolFlag(cmd, flagLocalOnly),
		LocalUpdate:  !boolFlag(cmd, flagSkipLocal),
	}
	return conf, runConf, nil
}

func boolFlag(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	if f == nil {
		return false
	}
	return f.Value.String() == "true"
}

// notifyContext is cancelled on the first interrupt; a second one exits immediately
func notifyContext(parent context.Context) (context.Context, func()) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case s, ok := <-sig:
			if !ok {
				return
			}
			log.Warnf("Received %s, no longer waiting for remotes. Interrupt again to exit immediately.", s)
			fmt.Fprintln(os.Stderr, "interrupted, reporting finished remotes")
			cancel()
		case <-ctx.Done():
			return
		}
		if _, ok := <-sig; ok {
			os.Exit(exitInterrupted)
		}
	}()
	return ctx, func() {
		signal.Stop(sig)
		cancel()
		close(sig)
	}
}
