package config

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	_debug          = "DEBUG"            // print debug messages
	_verbose        = "VERBOSE"          // print info messages and line numbers
	_disableLogTime = "DISABLE_LOG_TIME" // disable timestamp in logs
	EnvFile         = "./.env"           // path to environment variables file
)

// Env holds the logging switches read from the environment
type Env struct {
	Debug         bool
	Verbose       bool
	LogTimestamps bool
}

// Eval returns the boolean value of the env variable with the given key
func Eval(key string) bool {
	return os.Getenv(key) == "1" || os.Getenv(key) == "true" || os.Getenv(key) == "TRUE"
}

// LoadEnv sets env variables from the given file (if it exists) and evaluates the logging switches
func LoadEnv(file string) Env {
	err := godotenv.Load(file)
	if err == nil {
		log.Println("Loaded environment file:", file)
	}

	return Env{
		Debug:         Eval(_debug),
		Verbose:       Eval(_verbose),
		LogTimestamps: !Eval(_disableLogTime),
	}
}

// ConfigureLogging applies the switches to the standard logger
func ConfigureLogging(env Env) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:    env.LogTimestamps,
		DisableTimestamp: !env.LogTimestamps,
	})
	log.SetReportCaller(env.Verbose)
	switch {
	case env.Debug:
		log.SetLevel(log.DebugLevel)
		log.Debugf("All environment variables:\n%s", os.Environ())
	case env.Verbose:
		log.SetLevel(log.InfoLevel)
	default:
		// keep the console for progress and summary
		log.SetLevel(log.WarnLevel)
	}
	log.Debugln(_debug, env.Debug)
	log.Debugln(_verbose, env.Verbose)
	log.Debugln(_disableLogTime, !env.LogTimestamps)
}
