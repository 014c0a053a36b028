// Copyright (c) 2022-present, rocksplicator contributors
// All rights reserved. Licensed under the BSD 3-Clause License. See LICENSE file in the project root for full license information.

package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xia0pin9/rocksplicator/config"
	"github.com/xia0pin9/rocksplicator/internal/logger"
	"github.com/xia0pin9/rocksplicator/server"
)

func init() {
	flags := rootCmd.PersistentFlags()

	c := config.ReplicatorConfig{}
	_type := reflect.TypeOf(c)
	for i := 0; i < _type.NumField(); i++ {
		field := _type.Field(i)
		yamlTag := field.Tag.Get("mapstructure")
		descriptionTag := field.Tag.Get("description")
		defaultTag := field.Tag.Get("default")

		switch field.Type.Kind() {
		case reflect.String:
			flags.String(yamlTag, defaultTag, descriptionTag)
		case reflect.Int:
			val, _ := strconv.Atoi(defaultTag)
			flags.Int(yamlTag, val, descriptionTag)
		case reflect.Bool:
			val, _ := strconv.ParseBool(defaultTag)
			flags.Bool(yamlTag, val, descriptionTag)
		case reflect.Slice:
			// Support []string flags (e.g. --shards). StringArray lets
			// repeated flags append cleanly.
			if field.Type.Elem().Kind() == reflect.String {
				var defVal []string
				if defaultTag != "" {
					for _, seg := range strings.Split(defaultTag, ",") {
						if trim := strings.TrimSpace(seg); trim != "" {
							defVal = append(defVal, trim)
						}
					}
				}
				if len(defVal) == 0 {
					flags.StringArray(yamlTag, []string{}, descriptionTag)
				} else {
					flags.StringSlice(yamlTag, defVal, descriptionTag)
				}
			}
		}
	}
}

var rootCmd = &cobra.Command{
	Use:   "rocksplicator",
	Short: "rocksplicator - a per-shard replication engine for embedded key-value stores",
	Run: func(cmd *cobra.Command, args []string) {
		config.Load(cmd.Flags())
		slog.SetDefault(logger.New())
		server.Start()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
