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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opentier/pagetier/pkg/api"
)

var (
	optTaskProject string
	optTaskName    string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "start and stop scanning of project tasks",
}

var taskStartCmd = &cobra.Command{
	Use:   "start",
	Short: "start scanning, all project tasks unless one is named",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := request(api.Request{
			Command: api.CmdTaskStart,
			Project: optTaskProject,
			Task:    optTaskName,
		})
		if err != nil {
			return err
		}
		fmt.Println(resp.Message)
		return nil
	},
}

var taskStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "stop scanning, all project tasks unless one is named",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := request(api.Request{
			Command: api.CmdTaskStop,
			Project: optTaskProject,
			Task:    optTaskName,
		})
		if err != nil {
			return err
		}
		fmt.Println(resp.Message)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{taskStartCmd, taskStopCmd} {
		cmd.Flags().StringVarP(&optTaskProject, "name", "n", "",
			"project the task belongs to")
		_ = cmd.MarkFlagRequired("name")
		cmd.Flags().StringVarP(&optTaskName, "task", "t", "",
			"task to operate on, all tasks when omitted")
	}
	taskCmd.AddCommand(taskStartCmd, taskStopCmd)
	rootCmd.AddCommand(taskCmd)
}
