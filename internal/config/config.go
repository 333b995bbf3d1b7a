package config

import (
	"errors"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ListenAddress  string `json:"listenAddress"`
	WorkerInterval int    `json:"workerInterval"`
	LogDebug       bool   `json:"logDebug"`
	Github         struct {
		Token        string `json:"token"`
		Enterprise   string `json:"enterprise"`
		Organization string `json:"organization"`
		// TeamChildren maps a parent team to its child teams for
		// deployments whose hierarchy is not exposed through the
		// team-listing endpoint, e.g.
		// CSR_GITHUB_TEAMCHILDREN="platform:platform-app;platform-infra".
		TeamChildren map[string]string `json:"teamChildren"`
	} `json:"github"`
	Redis struct {
		Address  string `json:"address"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
}

const appConfPrefix = "CSR"

func Load() (Config, error) {
	var conf Config
	if err := envconfig.Process(appConfPrefix, &conf); err != nil {
		return conf, err
	}

	if conf.WorkerInterval == 0 {
		conf.WorkerInterval = 3600
	}
	if conf.ListenAddress == "" {
		conf.ListenAddress = ":8080"
	}
	if conf.Redis.Address == "" {
		conf.Redis.Address = "localhost:6379"
	}

	if conf.Github.Enterprise == "" && conf.Github.Organization == "" {
		return conf, errors.New("one of CSR_GITHUB_ENTERPRISE or CSR_GITHUB_ORGANIZATION must be set")
	}
	if conf.Github.Enterprise != "" && conf.Github.Organization != "" {
		return conf, errors.New("CSR_GITHUB_ENTERPRISE and CSR_GITHUB_ORGANIZATION are mutually exclusive")
	}

	return conf, nil
}
