// Copyright (c) 2022-present, rocksplicator contributors
// All rights reserved. Licensed under the BSD 3-Clause License. See LICENSE file in the project root for full license information.

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version is stamped by the build; "-" for untagged builds.
var Version = "-"

var Config *ReplicatorConfig

func init() {
	// Ensure Config is non-nil with default values for tests and simple runs
	if Config == nil {
		Config = Default()
	}
}

// ReplicatorConfig holds every recognized process-wide option. It is
// initialized once at startup and immutable thereafter; embedders that run
// several replicators in one process pass explicit copies instead.
type ReplicatorConfig struct {
	Port int    `mapstructure:"port" default:"9091" description:"the port the replicator grpc server binds to"`
	Host string `mapstructure:"host" default:"0.0.0.0" description:"the host address to bind to"`

	LogLevel string `mapstructure:"log-level" default:"info" description:"the log level"`

	IOThreads       int `mapstructure:"io-threads" default:"8" description:"the number of io workers for replication clients and server streams"`
	ExecutorThreads int `mapstructure:"executor-threads" default:"32" description:"the maximum number of concurrently served replication requests"`

	PullDelayOnErrorMillis              int `mapstructure:"pull-delay-on-error-ms" default:"100" description:"how long a puller backs off after a transport error"`
	MaxServerWaitTimeMillis             int `mapstructure:"max-server-wait-time-ms" default:"1000" description:"the longest a GetUpdates request is parked waiting for new writes"`
	ClientServerTimeoutDifferenceMillis int `mapstructure:"client-server-timeout-difference-ms" default:"1000" description:"extra client deadline on top of the server wait so the server times out first"`

	ResetUpstreamOnEmptyUpdates                bool `mapstructure:"reset-upstream-on-empty-updates" default:"false" description:"ask the external controller for a new upstream after persistent empty pulls from a non-leader"`
	MaxConsecutiveNoUpdatesBeforeUpstreamReset int  `mapstructure:"max-consecutive-no-updates-before-upstream-reset" default:"10" description:"empty pulls in a row before an upstream reset is requested"`

	ReplicationMode                        int `mapstructure:"replication-mode" default:"1" description:"1: async replication; 2: a write blocks until one follower acks"`
	AckTimeoutMillis                       int `mapstructure:"ack-timeout-ms" default:"2000" description:"how long a mode-2 write waits for a follower ack"`
	AckTimeoutDegradedMillis               int `mapstructure:"ack-timeout-degraded-ms" default:"10" description:"the ack wait once a shard has degraded"`
	ConsecutiveAckTimeoutBeforeDegradation int `mapstructure:"consecutive-ack-timeout-before-degradation" default:"15" description:"ack timeouts in a row before a shard degrades its ack wait"`

	MetricsHTTPEnabled bool   `mapstructure:"metrics-http-enabled" default:"false" description:"expose prometheus metrics over http"`
	MetricsHTTPAddr    string `mapstructure:"metrics-http-addr" default:":9121" description:"listen address for the metrics http endpoint"`

	Shards []string `mapstructure:"shards" description:"shards to host, each name=role[@upstream-host:port]"`
}

// Load reads rocksplicator.yaml from the metadata directory, then overlays
// any flag the user set on the command line.
func Load(flags *pflag.FlagSet) {
	configureMetadataDir()
	viper.SetConfigType("yaml")
	viper.AddConfigPath(MetadataDir)
	viper.SetConfigName("rocksplicator")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}
	}

	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Name == "help" {
			return
		}

		// Slice flags must be set as []string, not the formatted string.
		if flag.Value.Type() == "stringSlice" || flag.Value.Type() == "stringArray" {
			if flag.Changed || !viper.IsSet(flag.Name) {
				var ss []string
				var err error
				if flag.Value.Type() == "stringSlice" {
					ss, err = flags.GetStringSlice(flag.Name)
				} else {
					ss, err = flags.GetStringArray(flag.Name)
				}
				if err == nil {
					viper.Set(flag.Name, ss)
				} else {
					viper.Set(flag.Name, flag.Value.String())
				}
			}
			return
		}
		// Primitive flags: only update parsed config if the user set a
		// value or viper lacks one.
		if flag.Changed || !viper.IsSet(flag.Name) {
			viper.Set(flag.Name, flag.Value.String())
		}
	})

	if err := viper.Unmarshal(&Config); err != nil {
		panic(err)
	}

	if len(Config.Shards) > 0 {
		slog.Info("config loaded shards", slog.Any("shards", Config.Shards))
	}
}

// InitConfig writes the effective configuration to
// <metadata-dir>/rocksplicator.yaml, unless one already exists.
func InitConfig(flags *pflag.FlagSet) {
	Load(flags)
	configPath := filepath.Join(MetadataDir, "rocksplicator.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := viper.WriteConfigAs(configPath); err != nil {
			slog.Error("could not write the config file",
				slog.String("path", configPath),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("config created", slog.String("path", configPath))
	} else {
		if overwrite, _ := flags.GetBool("overwrite"); overwrite {
			if err := viper.WriteConfigAs(configPath); err != nil {
				slog.Error("could not write the config file",
					slog.String("path", configPath),
					slog.String("error", err.Error()))
				os.Exit(1)
			}
			slog.Info("config overwritten", slog.String("path", configPath))
		} else {
			slog.Info("config already exists. skipping.", slog.String("path", configPath))
			slog.Info("run with --overwrite to overwrite the existing config")
		}
	}
}

func configureMetadataDir() {
	if !filepath.IsAbs(MetadataDir) {
		cwd, _ := os.Getwd()
		MetadataDir = filepath.Join(cwd, MetadataDir)
	}
	if err := os.MkdirAll(MetadataDir, 0o700); err != nil {
		fmt.Printf("could not create metadata directory at %s. error: %s\n", MetadataDir, err)
		fmt.Println("using current directory as metadata directory")
		MetadataDir = "."
	}
}

// Default returns a fresh config populated from the struct's default tags.
func Default() *ReplicatorConfig {
	defaultConfig := &ReplicatorConfig{}
	configType := reflect.TypeOf(*defaultConfig)
	configValue := reflect.ValueOf(defaultConfig).Elem()

	for i := 0; i < configType.NumField(); i++ {
		field := configType.Field(i)
		value := configValue.Field(i)

		tag := field.Tag.Get("default")
		if tag != "" {
			switch value.Kind() {
			case reflect.String:
				value.SetString(tag)
			case reflect.Int:
				intVal := 0
				_, err := fmt.Sscanf(tag, "%d", &intVal)
				if err == nil {
					value.SetInt(int64(intVal))
				}
			case reflect.Bool:
				boolVal := false
				_, err := fmt.Sscanf(tag, "%t", &boolVal)
				if err == nil {
					value.SetBool(boolVal)
				}
			}
		}
	}

	return defaultConfig
}

// ForceInit installs config, filling zero-valued fields from defaults.
// Tests use it to run with a known configuration.
func ForceInit(config *ReplicatorConfig) {
	defaultConfig := Default()

	configType := reflect.TypeOf(*config)
	configValue := reflect.ValueOf(config).Elem()

	defaultConfigValue := reflect.ValueOf(defaultConfig).Elem()

	for i := 0; i < configType.NumField(); i++ {
		value := configValue.Field(i)
		defaultValue := defaultConfigValue.Field(i)
		// IsZero avoids panicking on comparison of uncomparable types.
		if value.IsZero() {
			value.Set(defaultValue)
		}
	}

	Config = config
}
