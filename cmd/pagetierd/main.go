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

// pagetierd is the memory-tiering daemon: it scans the idle-page
// state of registered processes and classifies their pages hot or
// cold.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/opentier/pagetier/pkg/idlescan"
	logger "github.com/opentier/pagetier/pkg/log"
	"github.com/opentier/pagetier/pkg/metrics"
	"github.com/opentier/pagetier/pkg/pidfile"
	"github.com/opentier/pagetier/pkg/project"
	"github.com/opentier/pagetier/pkg/server"
	"github.com/opentier/pagetier/pkg/tierengine"
	_ "github.com/opentier/pagetier/pkg/version"
)

// DefaultSocket is where the daemon listens unless told otherwise.
const DefaultSocket = "/var/run/pagetier/pagetierd.sock"

var log = logger.NewLogger("main")

// scanLog bridges the scan engine's logger interface to pkg/log.
type scanLog struct {
	logger.Logger
}

func (l scanLog) Debugf(format string, v ...interface{}) { l.Debug(format, v...) }
func (l scanLog) Infof(format string, v ...interface{})  { l.Info(format, v...) }
func (l scanLog) Warnf(format string, v ...interface{})  { l.Warn(format, v...) }
func (l scanLog) Errorf(format string, v ...interface{}) { l.Error(format, v...) }

func main() {
	optSocket := flag.String("socket", DefaultSocket,
		"control socket path")
	optMetrics := flag.String("metrics-address", "",
		"address to serve prometheus metrics on, empty to disable")
	optPidfile := flag.String("pidfile", "",
		"pidfile path, empty for the built-in default")
	flag.Parse()

	idlescan.SetLogger(scanLog{logger.NewLogger("idlescan")})

	pf := pidfile.New(*optPidfile)
	if err := pf.Acquire(); err != nil {
		log.Fatal("another pagetierd running? %v", err)
	}

	geom, err := idlescan.NewGeometry()
	if err != nil {
		log.Fatal("failed to set up page geometry: %v", err)
	}
	scanner := idlescan.NewScanner(geom, idlescan.Config{})
	manager := tierengine.NewManager(scanner, "/proc")

	d := &daemon{
		registry: project.NewRegistry(),
		manager:  manager,
	}
	srv := server.New(*optSocket, d)
	if err := srv.Start(); err != nil {
		_ = pf.Release()
		log.Fatal("failed to start control socket: %v", err)
	}

	if *optMetrics != "" {
		if err := metrics.Register(); err != nil {
			log.Error("failed to register metrics: %v", err)
		} else {
			go func() {
				if err := metrics.Serve(*optMetrics); err != nil {
					log.Error("metrics server on %s: %v", *optMetrics, err)
				}
			}()
			log.Info("serving metrics on %s", *optMetrics)
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Info("received %v, shutting down", sig)

	manager.StopAll()
	if err := srv.Stop(); err != nil {
		log.Error("control socket shutdown: %v", err)
	}
	if err := pf.Release(); err != nil {
		log.Error("pidfile cleanup: %v", err)
	}
}
