/*
Copyright 2025 GridRank Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gridrank/gridrank"
	"github.com/gridrank/gridrank/config"
	"github.com/gridrank/gridrank/database"
	"github.com/gridrank/gridrank/internal/notification"
)

// GridRank represents the CLI application, encapsulating the root Cobra command.
type GridRank struct {
	cmd *cobra.Command
}

// gridrankInstance holds the engine instance and its configuration, shared by
// all subcommands.
type gridrankInstance struct {
	engine *gridrank.Gridrank
	cnf    *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the engine before running
// any command.
func preRun(app *gridrankInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("gridrank.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		engine, err := setupGridrank(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.engine = engine
		app.cnf = cnf

		return nil
	}
}

// setupGridrank creates and initializes a new engine instance from the
// provided configuration.
func setupGridrank(cfg *config.Configuration) (*gridrank.Gridrank, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	engine, err := gridrank.NewGridrank(db)
	if err != nil {
		return nil, fmt.Errorf("error creating gridrank: %v", err)
	}
	return engine, nil
}

// NewCLI creates the command-line interface for the GridRank application.
func NewCLI() *GridRank {
	var configFile string
	g := &gridrankInstance{}

	var rootCmd = &cobra.Command{
		Use:   "gridrank",
		Short: "Scheduled geo-grid rank scans with credit billing",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./gridrank.json", "Configuration file for gridrank")

	rootCmd.PersistentPreRunE = preRun(g)

	rootCmd.AddCommand(serverCommands(g))
	rootCmd.AddCommand(workerCommands(g))
	rootCmd.AddCommand(migrateCommands(g))

	return &GridRank{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during execution.
func (w GridRank) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
