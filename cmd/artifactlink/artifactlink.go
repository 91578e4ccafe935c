package artifactlink

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/artifactlink/artifactlink/pkg/api"
	"github.com/artifactlink/artifactlink/pkg/artifacts"
	"github.com/artifactlink/artifactlink/pkg/buildserver"
	"github.com/artifactlink/artifactlink/pkg/buildserver/rest"
	"github.com/artifactlink/artifactlink/pkg/buildserver/static"
	"github.com/artifactlink/artifactlink/pkg/config"
	"github.com/artifactlink/artifactlink/pkg/links"
)

func setupLogs(logConfig config.Logging) {
	// Equivalent of Lshortfile
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if file[i] == '/' {
				short = file[i+1:]
				break
			}
		}
		file = short
		return file + ":" + strconv.Itoa(line)
	}

	// Set log level
	logLevel := zerolog.TraceLevel
	switch logConfig.Level {
	case "panic":
		logLevel = zerolog.PanicLevel
	case "fatal":
		logLevel = zerolog.FatalLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "debug":
		logLevel = zerolog.DebugLevel
	case "trace":
		logLevel = zerolog.TraceLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	// Set log output format
	if logConfig.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Caller().Logger()
	} else {
		log.Logger = log.With().Caller().Logger()
	}
}

func NewBuildServer(conf config.BuildServer) (buildserver.BuildServer, error) {
	switch conf.Type {
	case "static":
		return static.NewServer(conf.Settings)
	case "rest":
		return rest.NewServer(conf.Settings)
	}

	return nil, fmt.Errorf("unsupported build server %q", conf.Type)
}

func Run(conf config.Config) {
	setupLogs(conf.Logging)

	log.Debug().Msg("Starting portable artifact link server")

	buildServer, err := NewBuildServer(conf.BuildServer)
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to set up build server")
	}

	artifactStore, err := artifacts.NewArtifactStore(conf.Artifacts)
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to set up artifact store")
	}

	if err := os.MkdirAll(conf.API.DataDir, 0755); err != nil {
		log.Fatal().Err(err).Str("dir", conf.API.DataDir).Msg("Unable to create data directory")
	}

	store := links.NewStore(conf.API.DataDir)
	store.Load()

	a := api.NewAPI(conf.API, store, buildServer, artifactStore)
	mux := api.CreateMux(a)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api.RunAPI(ctx, conf.API, mux)

	log.Debug().Msg("Done")
}
