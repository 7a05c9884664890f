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

// pagetier is the command line client of pagetierd.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opentier/pagetier/pkg/api"
	"github.com/opentier/pagetier/pkg/client"
	"github.com/opentier/pagetier/pkg/version"
)

const defaultSocket = "/var/run/pagetier/pagetierd.sock"

var optSocket string

var rootCmd = &cobra.Command{
	Use:           "pagetier",
	Short:         "control the pagetier memory-tiering daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version information",
	Run: func(cmd *cobra.Command, args []string) {
		version.PrintVersionInfo()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&optSocket, "socket", "s",
		defaultSocket, "daemon control socket to connect to")
	rootCmd.AddCommand(versionCmd)
}

// request runs one command against the daemon and returns its
// response.
func request(req api.Request) (api.Response, error) {
	c, err := client.Dial(optSocket)
	if err != nil {
		return api.Response{}, err
	}
	defer c.Close()
	return c.Do(req)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pagetier: %v\n", err)
		os.Exit(1)
	}
}
