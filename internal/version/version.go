// Copyright 2025 Blink Labs Software
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

// Package version reports the build version of the running binary.
// Version defaults to "dev" and is overridden at build time via
// -ldflags "-X github.com/txpipe/dolos/internal/version.Version=...".
package version

import (
	"fmt"
	"runtime/debug"
)

var Version = "dev"

// CommitHash resolves to the embedded VCS revision when built with
// module info (e.g. via `go build` from within a checkout), falling
// back to "unknown" otherwise.
func CommitHash() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}
	return "unknown"
}

func GetVersionString() string {
	return fmt.Sprintf("%s (%s)", Version, CommitHash())
}
