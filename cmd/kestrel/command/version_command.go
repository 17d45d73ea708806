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
	"runtime"

	"github.com/ortuman/kestrel/pkg/version"
	"github.com/spf13/cobra"
)

// NewVersionCommand prints out the version of kestrel.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the version of kestrel",
		Run:   versionCommandFunc,
	}
}

func versionCommandFunc(_ *cobra.Command, _ []string) {
	fmt.Println("kestrel version:", version.Version)
	fmt.Println("Go version:", runtime.Version())
}
