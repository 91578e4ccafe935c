package main

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"github.com/artifactlink/artifactlink/cmd/artifactlink"
	"github.com/artifactlink/artifactlink/pkg/config"
)

func getConfig(filePath string) config.Config {
	var conf config.Config
	if _, err := toml.DecodeFile(filePath, &conf); err != nil {
		log.Fatal().Err(err).Msg("Unable to load config file")
	}
	return conf
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal().Msg("Usage: artifactlink <config.toml>")
	}

	conf := getConfig(os.Args[1])
	artifactlink.Run(conf)
}
