/*
Copyright © 2021 Edmond Cotterell

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
package cmd

import (
	"fmt"
	"os"
	"strings"

	devConfig "github.com/Daskott/phonebook/dev/config"
	"github.com/Daskott/phonebook/version"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serverConfigFile string
	isDevEnv         bool

	red = color.New(color.FgRed).SprintFunc()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd *cobra.Command

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd = createRootCmd()
	rootCmd.Version = fmt.Sprintf("v%s", version.Version)

	rootCmd.AddCommand(createServerCmd())
	rootCmd.AddCommand(createUserCmd())
}

func createRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "phonebook",
		Short: `phonebook is a personal contact manager served over HTTP.

Each user keeps their own list of people, and each person any number of
phone numbers.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&serverConfigFile, "sconfig", "", "config file for the server")
	cmd.PersistentFlags().BoolVarP(&isDevEnv, "dev", "", false, "run in development mode")

	return cmd
}

// serverConfig reads the server config from --sconfig, or the built in dev
// config with --dev. Env vars override both.
func serverConfig() (*viper.Viper, error) {
	config := viper.New()
	config.AutomaticEnv() // read in environment variables that match

	if isDevEnv {
		config.SetConfigType("yaml")
		if err := config.ReadConfig(strings.NewReader(devConfig.SERVER_YML)); err != nil {
			return nil, fmt.Errorf("error reading dev server config: %v", err)
		}
		return config, nil
	}

	if serverConfigFile == "" {
		return nil, formattedError("must set --sconfig, or run with --dev")
	}

	config.SetConfigFile(serverConfigFile)
	if err := config.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading server config file: %v", err)
	}
	fmt.Fprintln(os.Stderr, "Using config file:", config.ConfigFileUsed())

	return config, nil
}

func formattedError(format string, a ...interface{}) error {
	return fmt.Errorf(red(format), a...)
}
