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
	"fmt"

	"github.com/ortuman/kestrel/pkg/kestrel"
	"github.com/spf13/cobra"
)

// NewConfigCommand returns the configuration management command.
func NewConfigCommand() *cobra.Command {
	cc := &cobra.Command{
		Use:   "config <subcommand>",
		Short: "Configuration related commands",
	}
	cc.AddCommand(newConfigCheckCommand())
	return cc
}

func newConfigCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validates configuration file without starting the server",
		Run:   configCheckCommandFunc,
	}
}

func configCheckCommandFunc(cmd *cobra.Command, _ []string) {
	cfgFile := configFileFromCmd(cmd)

	cfg, err := kestrel.LoadConfig(cfgFile)
	if err != nil {
		ExitWithError(ExitBadConfig, err)
	}
	if err := kestrel.CheckConfig(cfg); err != nil {
		ExitWithError(ExitBadConfig, err)
	}
	fmt.Printf("%s: configuration OK\n", cfgFile)
}
