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
	"github.com/ortuman/kestrel/pkg/kestrel"
	"github.com/ortuman/kestrel/pkg/log"
	"github.com/ortuman/kestrel/pkg/util/crashreporter"
	"github.com/spf13/cobra"
)

// NewServeCommand returns the command running the XMPP server until a stop signal is received.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs kestrel server",
		Run:   serveCommandFunc,
	}
}

func serveCommandFunc(cmd *cobra.Command, _ []string) {
	cfg, err := kestrel.LoadConfig(configFileFromCmd(cmd))
	if err != nil {
		ExitWithError(ExitBadConfig, err)
	}
	logger := log.NewDefaultLogger(cfg.Logger.Level, cfg.Logger.Format)

	defer crashreporter.RecoverAndReportPanic(logger)

	if err := kestrel.New(cfg, logger).Run(); err != nil {
		ExitWithError(ExitError, err)
	}
}
