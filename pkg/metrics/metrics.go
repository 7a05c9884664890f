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

// Package metrics exposes scan statistics as prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opentier/pagetier/pkg/stats"
)

const namespace = "pagetier"

var (
	scansDesc = prometheus.NewDesc(
		namespace+"_scans_total",
		"Number of scans run for a task.",
		[]string{"project", "task", "pid"}, nil)
	scanErrorsDesc = prometheus.NewDesc(
		namespace+"_scan_errors_total",
		"Number of failed scans for a task.",
		[]string{"project", "task", "pid"}, nil)
	pagesDesc = prometheus.NewDesc(
		namespace+"_pages_scanned",
		"Pages observed by the last successful scan.",
		[]string{"project", "task", "pid"}, nil)
	hotDesc = prometheus.NewDesc(
		namespace+"_pages_hot",
		"Pages classified hot by the last successful scan.",
		[]string{"project", "task", "pid"}, nil)
	coldDesc = prometheus.NewDesc(
		namespace+"_pages_cold",
		"Pages classified cold by the last successful scan.",
		[]string{"project", "task", "pid"}, nil)
	residentDesc = prometheus.NewDesc(
		namespace+"_pages_resident",
		"Resident-set estimate of the last successful scan.",
		[]string{"project", "task", "pid"}, nil)
	durationDesc = prometheus.NewDesc(
		namespace+"_scan_duration_seconds",
		"Duration of the last successful scan.",
		[]string{"project", "task", "pid"}, nil)
)

// collector turns stats snapshots into prometheus metrics on every
// scrape.
type collector struct {
	stats *stats.Stats
}

// NewCollector returns a collector over the given stats.
func NewCollector(s *stats.Stats) prometheus.Collector {
	return &collector{stats: s}
}

// Register registers the process-wide stats with the default
// prometheus registry.
func Register() error {
	return prometheus.Register(NewCollector(stats.Get()))
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- scansDesc
	ch <- scanErrorsDesc
	ch <- pagesDesc
	ch <- hotDesc
	ch <- coldDesc
	ch <- residentDesc
	ch <- durationDesc
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	for key, ts := range c.stats.Tasks() {
		proj, task := splitKey(key)
		labels := []string{proj, task, strconv.Itoa(ts.Pid)}
		ch <- prometheus.MustNewConstMetric(scansDesc,
			prometheus.CounterValue, float64(ts.Scans), labels...)
		ch <- prometheus.MustNewConstMetric(scanErrorsDesc,
			prometheus.CounterValue, float64(ts.Errors), labels...)
		ch <- prometheus.MustNewConstMetric(pagesDesc,
			prometheus.GaugeValue, float64(ts.Pages), labels...)
		ch <- prometheus.MustNewConstMetric(hotDesc,
			prometheus.GaugeValue, float64(ts.Hot), labels...)
		ch <- prometheus.MustNewConstMetric(coldDesc,
			prometheus.GaugeValue, float64(ts.Cold), labels...)
		ch <- prometheus.MustNewConstMetric(residentDesc,
			prometheus.GaugeValue, float64(ts.Resident), labels...)
		ch <- prometheus.MustNewConstMetric(durationDesc,
			prometheus.GaugeValue, ts.LastDuration.Seconds(), labels...)
	}
}

func splitKey(key string) (string, string) {
	if i := strings.IndexByte(key, '/'); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, ""
}

// Serve exposes the default registry on addr under /metrics. It
// blocks like http.ListenAndServe.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
