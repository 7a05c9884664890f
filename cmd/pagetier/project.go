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

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/opentier/pagetier/pkg/api"
)

var (
	optProjectFile string
	optProjectName string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "manage scan projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add",
	Short: "register a project from a configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := os.ReadFile(optProjectFile)
		if err != nil {
			return errors.Wrapf(err, "reading %q", optProjectFile)
		}
		resp, err := request(api.Request{
			Command: api.CmdProjectAdd,
			Project: optProjectName,
			Config:  config,
		})
		if err != nil {
			return err
		}
		fmt.Println(resp.Message)
		return nil
	},
}

var projectDelCmd = &cobra.Command{
	Use:   "del",
	Short: "delete a project, stopping its tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := request(api.Request{
			Command: api.CmdProjectDel,
			Project: optProjectName,
		})
		if err != nil {
			return err
		}
		fmt.Println(resp.Message)
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show",
	Short: "show projects and their task statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := request(api.Request{
			Command: api.CmdProjectShow,
			Project: optProjectName,
		})
		if err != nil {
			return err
		}
		var infos []api.ProjectInfo
		if err := json.Unmarshal(resp.Payload, &infos); err != nil {
			return errors.Wrap(err, "decoding project info")
		}
		printProjects(infos)
		return nil
	},
}

func printProjects(infos []api.ProjectInfo) {
	if len(infos) == 0 {
		fmt.Println("no projects")
		return
	}
	for _, info := range infos {
		fmt.Printf("project %s: loop=%d sleep=%ds interval=%ds\n",
			info.Name, info.Loop, info.Sleep, info.Interval)
		for _, t := range info.Tasks {
			state := "stopped"
			if t.Started {
				state = "started"
			}
			engine := t.Engine
			if engine == "" {
				engine = "slide"
			}
			fmt.Printf("  task %s (%s=%s, engine=%s): %s\n",
				t.Name, t.Type, t.Value, engine, state)
			fmt.Printf("    scans=%d errors=%d pages=%d hot=%d cold=%d resident=%d\n",
				t.Scans, t.Errors, t.Pages, t.Hot, t.Cold, t.Resident)
		}
	}
}

func init() {
	projectAddCmd.Flags().StringVarP(&optProjectFile, "file", "f", "",
		"project configuration file")
	_ = projectAddCmd.MarkFlagRequired("file")
	projectAddCmd.Flags().StringVarP(&optProjectName, "name", "n", "",
		"expected project name, checked against the file")

	projectDelCmd.Flags().StringVarP(&optProjectName, "name", "n", "",
		"project to delete")
	_ = projectDelCmd.MarkFlagRequired("name")

	projectShowCmd.Flags().StringVarP(&optProjectName, "name", "n", "",
		"project to show, all when omitted")

	projectCmd.AddCommand(projectAddCmd, projectDelCmd, projectShowCmd)
	rootCmd.AddCommand(projectCmd)
}
