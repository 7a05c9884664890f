// Copyright 2022 The pagetier Authors. All Rights Reserved.
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

// Package version tags binaries with build metadata. The variables
// below are overridden by the linker:
//
//	LDFLAGS=-ldflags \
//	  "-X=github.com/opentier/pagetier/pkg/version.Version=<version> \
//	   -X=github.com/opentier/pagetier/pkg/version.Build=<build-id>"
package version

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

var (
	// Version is our version as given by 'git describe'.
	Version = "unknown"
	// Build is the SHA1 of the repository we've been built from.
	Build = "unknown"
)

// String returns the version and build as one string.
func String() string {
	return fmt.Sprintf("%s (build %s)", Version, Build)
}

// PrintVersionInfo prints version information about this binary.
func PrintVersionInfo() {
	fmt.Printf("%s version information:\n", filepath.Base(os.Args[0]))
	fmt.Printf("  - version: %s\n", Version)
	fmt.Printf("  - build:   %s\n", Build)
}

// versionFlag hooks into flag.Value so that -version prints the
// information and exits during commandline parsing.
type versionFlag struct{}

// IsBoolFlag tells flag that we only have optional arguments.
func (versionFlag) IsBoolFlag() bool {
	return true
}

func (versionFlag) Set(value string) error {
	print, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	if print {
		PrintVersionInfo()
		os.Exit(0)
	}
	return nil
}

func (versionFlag) String() string {
	return ""
}

func init() {
	flag.Var(versionFlag{}, "version", "print version information and exit.")
}
