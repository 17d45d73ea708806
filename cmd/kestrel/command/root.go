// Copyright 2024 The jackal Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package command

import (
	"github.com/spf13/cobra"
)

const (
	cliName        = "kestrel"
	cliDescription = "A multi-tenant XMPP server."

	defaultConfigFile = "config.yaml"
)

var (
	rootCmd = &cobra.Command{
		Use:        cliName,
		Short:      cliDescription,
		SuggestFor: []string{"kestrel"},
	}
)

func init() {
	cobra.EnablePrefixMatching = true

	rootCmd.PersistentFlags().String("config", defaultConfigFile, "configuration file path")

	rootCmd.AddCommand(
		NewServeCommand(),
		NewConfigCommand(),
		NewVersionCommand(),
	)
}

// Start runs kestrel root command.
func Start() error {
	// Make help just show the usage
	rootCmd.SetHelpTemplate(`{{.UsageString}}`)
	return rootCmd.Execute()
}

// MustStart is like Start but exiting in case an error occurs.
func MustStart() {
	if err := Start(); err != nil {
		ExitWithError(ExitError, err)
	}
}

func configFileFromCmd(cmd *cobra.Command) string {
	cfgFile, err := cmd.Flags().GetString("config")
	if err != nil {
		ExitWithError(ExitBadArgs, err)
	}
	return cfgFile
}
