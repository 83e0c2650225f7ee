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
	"os"
	"os/exec"
	"sort"
	"strings"
)

// LaunchSpec describes how to start a managed node.  It is a tagged
// union: either Executable is set and the node is a single process
// started with "ros2 run", or LaunchFile is set and the node is a
// process tree started with "ros2 launch".  Setting both, or neither,
// is rejected with ErrInvalidSpec before any record is created.
//
// The spec is immutable once the node has been launched.
type LaunchSpec struct {
	Name       string            `json:"name"`
	Package    string            `json:"package"`
	Executable string            `json:"executable,omitempty"`
	LaunchFile string            `json:"launch_file,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

func (s *LaunchSpec) Validate() error {
	if s.Name == "" || s.Package == "" {
		return ErrInvalidSpec
	}
	if (s.Executable == "") == (s.LaunchFile == "") {
		return ErrInvalidSpec
	}
	return nil
}

// Args builds the argument vector handed to the external launcher.
// Parameters are serialized the way the launcher expects them, one
// "--ros-args -p key:=value" group per entry, in key order.
func (s *LaunchSpec) Args() []string {
	var args []string
	if s.Executable != "" {
		args = []string{"run", s.Package, s.Executable}
	} else {
		args = []string{"launch", s.Package, s.LaunchFile}
	}
	keys := make([]string, 0, len(s.Parameters))
	for k := range s.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--ros-args", "-p", k+":="+s.Parameters[k])
	}
	return args
}

// rosEnviron returns the process environment for launched nodes: the
// system environment overlaid with whatever the ROS distribution's
// setup script exports.  An empty distro, or a distro whose setup
// script does not exist, yields the plain system environment.
func rosEnviron(distro string) ([]string, error) {
	if distro == "" {
		return os.Environ(), nil
	}
	setup := "/opt/ros/" + distro + "/setup.sh"
	if _, err := os.Stat(setup); err != nil {
		return os.Environ(), nil
	}
	out, err := exec.Command("bash", "-c", "source "+setup+" && env").Output()
	if err != nil {
		return os.Environ(), err
	}
	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	for _, line := range strings.Split(string(out), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			merged[k] = v
		}
	}
	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	return env, nil
}
