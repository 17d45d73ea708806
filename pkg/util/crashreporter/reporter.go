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

package crashreporter

import (
	"fmt"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

const panicExitCode = 2

var exitFn = os.Exit

// RecoverAndReportPanic logs a recovered panic along with its stack trace and terminates the process.
// It must be deferred.
func RecoverAndReportPanic(logger kitlog.Logger) {
	if r := recover(); r != nil {
		panicErr := panicAsError(r)
		level.Error(logger).Log("msg", "a panic has occurred", "err", fmt.Sprintf("%+v", panicErr))
		exitFn(panicExitCode)
	}
}

func panicAsError(r interface{}) error {
	if err, ok := r.(error); ok {
		return errors.WithStack(err)
	}
	return errors.Errorf("panic: %v", r)
}
