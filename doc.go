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

// Package rosvisor supervises named ROS 2 node processes.  A Supervisor
// launches external nodes (either a single executable via "ros2 run",
// or a launch file via "ros2 launch") under caller-assigned unique
// names, captures their stdout and stderr streams into bounded
// per-node logs, and supports synchronous termination and status
// inspection while the nodes themselves run detached from any request.
//
// The Supervisor keeps records of terminated and failed nodes until
// they are explicitly removed, so a node name may only be reused after
// its prior record has reached a terminal state and been deleted.
//
// A REST adapter for the Supervisor lives in the rest subpackage, and
// may be mounted inside an existing HTTP server.  The rosvisord daemon
// and the rosvisor command line client are thin wrappers around that
// adapter.
package rosvisor
