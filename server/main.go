// Copyright (c) 2022-present, rocksplicator contributors
// All rights reserved. Licensed under the BSD 3-Clause License. See LICENSE file in the project root for full license information.

package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/xia0pin9/rocksplicator/config"
	"github.com/xia0pin9/rocksplicator/internal/observability"
	"github.com/xia0pin9/rocksplicator/internal/replicator"
	"github.com/xia0pin9/rocksplicator/internal/store"
)

func printConfiguration() {
	slog.Info("starting rocksplicator", slog.String("version", config.Version))
	slog.Info("running with", slog.Int("port", config.Config.Port))
	slog.Info("running with", slog.Int("io-threads", config.Config.IOThreads))
	slog.Info("running with", slog.Int("replication-mode", config.Config.ReplicationMode))
	slog.Info("running on", slog.Int("cores", runtime.NumCPU()))
}

func printBanner() {
	fmt.Print(`

██████╗  ██████╗  ██████╗██╗  ██╗███████╗██████╗ ██╗     ██╗ ██████╗ █████╗ ████████╗ ██████╗ ██████╗
██╔══██╗██╔═══██╗██╔════╝██║ ██╔╝██╔════╝██╔══██╗██║     ██║██╔════╝██╔══██╗╚══██╔══╝██╔═══██╗██╔══██╗
██████╔╝██║   ██║██║     █████╔╝ ███████╗██████╔╝██║     ██║██║     ███████║   ██║   ██║   ██║██████╔╝
██╔══██╗██║   ██║██║     ██╔═██╗ ╚════██║██╔═══╝ ██║     ██║██║     ██╔══██║   ██║   ██║   ██║██╔══██╗
██║  ██║╚██████╔╝╚██████╗██║  ██╗███████║██║     ███████╗██║╚██████╗██║  ██║   ██║   ╚██████╔╝██║  ██║
╚═╝  ╚═╝ ╚═════╝  ╚═════╝╚═╝  ╚═╝╚══════╝╚═╝     ╚══════╝╚═╝ ╚═════╝╚═╝  ╚═╝   ╚═╝    ╚═════╝ ╚═╝  ╚═╝

`)
}

// parseShardSpec splits one --shards entry, name=role[@upstream-host:port].
func parseShardSpec(spec string) (name string, role replicator.Role, upstream string, err error) {
	name, rest, found := strings.Cut(spec, "=")
	if !found || name == "" {
		return "", 0, "", fmt.Errorf("shard spec %q: want name=role[@upstream]", spec)
	}
	roleStr, upstream, _ := strings.Cut(rest, "@")
	switch strings.ToLower(roleStr) {
	case "leader":
		role = replicator.Leader
	case "follower":
		role = replicator.Follower
	case "observer":
		role = replicator.Observer
	default:
		return "", 0, "", fmt.Errorf("shard spec %q: unknown role %q", spec, roleStr)
	}
	if role != replicator.Leader && upstream == "" {
		return "", 0, "", fmt.Errorf("shard spec %q: role %s needs an upstream", spec, role)
	}
	return name, role, upstream, nil
}

// Start runs the process-wide replicator until SIGINT/SIGTERM.
func Start() {
	printBanner()
	printConfiguration()

	rep, err := replicator.Default()
	if err != nil {
		slog.Error("could not start the replicator", slog.Any("error", err))
		os.Exit(1)
	}

	for _, spec := range config.Config.Shards {
		name, role, upstream, err := parseShardSpec(spec)
		if err != nil {
			slog.Error("bad shard spec", slog.Any("error", err))
			os.Exit(1)
		}
		if _, err := rep.AddShard(name, store.NewMemStore(), role, upstream); err != nil {
			slog.Error("could not add shard", slog.String("shard", name), slog.Any("error", err))
			os.Exit(1)
		}
	}

	if config.Config.MetricsHTTPEnabled {
		mux := http.NewServeMux()
		observability.SetupPrometheus(mux)
		addr := config.Config.MetricsHTTPAddr
		slog.Info("metrics http server starting", slog.String("addr", addr))
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics http server exited", slog.Any("error", err))
			}
		}()
	}

	slog.Info("ready to serve replication requests")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	<-sigs

	slog.Info("shutting down")
	rep.Close()
	slog.Info("bye.")
}
