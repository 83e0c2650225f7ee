// Copyright 2026 The Rosvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rosvisor

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	launchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rosvisor_launches_total",
			Help: "Launch requests, by result",
		},
		[]string{"result"},
	)

	terminationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rosvisor_terminations_total",
			Help: "Completed explicit node terminations",
		},
	)

	killEscalationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rosvisor_kill_escalations_total",
			Help: "Terminations that needed a forceful kill after the grace period",
		},
	)

	nodesRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rosvisor_nodes_running",
			Help: "Nodes currently in the running state",
		},
	)

	outputLinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rosvisor_output_lines_total",
			Help: "Captured node output lines, by stream",
		},
		[]string{"stream"},
	)
)

func init() {
	prometheus.MustRegister(
		launchesTotal,
		terminationsTotal,
		killEscalationsTotal,
		nodesRunning,
		outputLinesTotal,
	)
}
