// Copyright 2026 nopo Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"io"

	"github.com/juju/errors"
	"github.com/nopo-io/nopo/base/log"
	"github.com/nopo-io/nopo/cmd/version"
	"github.com/nopo-io/nopo/config"
	"github.com/nopo-io/nopo/storage/data"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cliCommand = &cobra.Command{
	Use:   "nopo-cli",
	Short: "CLI for nopo restaurant recommender",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Check the version of nopo",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.BuildInfo())
	},
}

var initCommand = &cobra.Command{
	Use:   "init",
	Short: "Create tables in the data store",
	Run: func(cmd *cobra.Command, args []string) {
		_, database := mustOpenDatabase(cmd)
		defer database.Close()
		if err := database.Init(); err != nil {
			log.Logger().Fatal("failed to init data store", zap.Error(err))
		}
		log.Logger().Info("init data store successfully")
	},
}

func init() {
	log.AddFlags(cliCommand.PersistentFlags())
	cliCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	cliCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	cliCommand.AddCommand(versionCommand)
	cliCommand.AddCommand(initCommand)
}

// mustOpenDatabase loads the configuration and connects to the data store.
func mustOpenDatabase(cmd *cobra.Command) (*config.Config, data.Database) {
	configPath, _ := cmd.Flags().GetString("config")
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.Error(err))
	}
	database, err := data.Open(conf.Database.DataStore, conf.Database.TablePrefix)
	if err != nil {
		log.Logger().Fatal("failed to connect data store",
			zap.String("database", log.RedactDBURL(conf.Database.DataStore)), zap.Error(err))
	}
	return conf, database
}

// printTable renders rows as a text table.
func printTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(lo.ToAnySlice(header)...)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

func main() {
	if err := cliCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
