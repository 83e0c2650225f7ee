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
	"bufio"
	"io"
	"log"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a managed node.  Nodes move from
// Starting to Running once the spawn syscall succeeds, and from
// Running to exactly one of the terminal states.  No transition ever
// leaves a terminal state.
type State string

const (
	StateStarting   State = "starting"
	StateRunning    State = "running"
	StateTerminated State = "terminated"
	StateFailed     State = "failed"
)

// Terminal reports whether the state is absorbing.
func (s State) Terminal() bool {
	return s == StateTerminated || s == StateFailed
}

// ExitInfo records how a node's process exited.  It is set exactly
// once, when the process is reaped.
type ExitInfo struct {
	Code   int       `json:"code"`
	Signal string    `json:"signal,omitempty"`
	Time   time.Time `json:"time"`
	Reason string    `json:"reason,omitempty"`
}

// Node is the record for one managed process: identity, launch
// parameters, OS handle, lifecycle state, and captured output.  Nodes
// are created by a Supervisor and shared with callers read-only; all
// mutation happens on the supervisor's goroutines.
type Node struct {
	name   string
	id     string
	spec   LaunchSpec
	log    *OutputLog
	logger *log.Logger
	onExit func(*Node)

	mx        sync.Mutex
	state     State
	stopping  bool
	pid       int
	cmd       *exec.Cmd
	exit      *ExitInfo
	started   time.Time
	collected sync.WaitGroup
	done      chan struct{}
}

// NodeStatus is a point-in-time snapshot of a node record.
type NodeStatus struct {
	Name    string      `json:"name"`
	Id      string      `json:"id"`
	State   State       `json:"state"`
	Pid     int         `json:"pid,omitempty"`
	Spec    LaunchSpec  `json:"spec"`
	Started time.Time   `json:"started,omitzero"`
	Exit    *ExitInfo   `json:"exit,omitempty"`
	Log     []LogRecord `json:"log,omitempty"`
	LogId   int64       `json:"log_id,string"`
}

func newNode(spec LaunchSpec, logger *log.Logger, maxLog int, onExit func(*Node)) *Node {
	return &Node{
		name:   spec.Name,
		id:     uuid.NewString(),
		spec:   spec,
		log:    NewOutputLog(maxLog),
		logger: logger,
		onExit: onExit,
		state:  StateStarting,
		done:   make(chan struct{}),
	}
}

func (n *Node) Name() string {
	return n.name
}

// Id returns the unique identifier assigned at creation.  Unlike the
// name, it is never reused, even after the record is removed.
func (n *Node) Id() string {
	return n.id
}

func (n *Node) Spec() LaunchSpec {
	return n.spec
}

func (n *Node) State() State {
	n.mx.Lock()
	rv := n.state
	n.mx.Unlock()
	return rv
}

// Pid returns the OS process ID, or zero if the node never spawned.
func (n *Node) Pid() int {
	n.mx.Lock()
	rv := n.pid
	n.mx.Unlock()
	return rv
}

// Exit returns a copy of the exit information, or nil while the
// process has not exited.
func (n *Node) Exit() *ExitInfo {
	n.mx.Lock()
	defer n.mx.Unlock()
	if n.exit == nil {
		return nil
	}
	rv := *n.exit
	return &rv
}

// Done is closed once the node has been reaped (or has failed to
// spawn).  Terminate blocks on it.
func (n *Node) Done() <-chan struct{} {
	return n.done
}

// GetLog returns the captured output records newer than since, along
// with an ID usable as an Etag; see OutputLog.GetRecords.
func (n *Node) GetLog(since int64) ([]LogRecord, int64) {
	return n.log.GetRecords(since)
}

// WatchLog blocks until the output log changes relative to last, is
// frozen, or the expiration passes.
func (n *Node) WatchLog(last int64, expire time.Duration) int64 {
	return n.log.Watch(last, expire)
}

// Status returns a consistent snapshot of the record, including all
// retained log records newer than since.
func (n *Node) Status(since int64) *NodeStatus {
	recs, id := n.log.GetRecords(since)
	n.mx.Lock()
	st := &NodeStatus{
		Name:    n.name,
		Id:      n.id,
		State:   n.state,
		Pid:     n.pid,
		Spec:    n.spec,
		Started: n.started,
		Log:     recs,
		LogId:   id,
	}
	if n.exit != nil {
		e := *n.exit
		st.Exit = &e
	}
	n.mx.Unlock()
	return st
}

// start spawns the node's process and begins output collection.  On
// failure the record transitions to Failed and the spawn error is
// returned; the record remains queryable either way.
func (n *Node) start(cmd *exec.Cmd) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		n.fail("failed to capture stdout: " + err.Error())
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		n.fail("failed to capture stderr: " + err.Error())
		return err
	}

	n.mx.Lock()
	n.cmd = cmd
	n.mx.Unlock()

	if err := cmd.Start(); err != nil {
		n.fail("spawn failed: " + err.Error())
		return err
	}

	n.mx.Lock()
	n.pid = cmd.Process.Pid
	n.started = time.Now()
	n.state = StateRunning
	n.mx.Unlock()
	n.logger.Printf("Started (pid %d)", cmd.Process.Pid)

	n.collected.Add(2)
	go n.collect(stdout, StreamOut)
	go n.collect(stderr, StreamErr)
	go n.wait()
	return nil
}

// collect drains one output stream into the log, line by line, until
// end of stream.  Trailing data without a newline is flushed as a
// final line.  The child never stalls on a full pipe because this
// keeps reading for as long as the descriptor is open.
func (n *Node) collect(r io.ReadCloser, stream Stream) {
	defer n.collected.Done()
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			n.log.Append(stream, strings.TrimRight(line, "\n"))
			outputLinesTotal.WithLabelValues(string(stream)).Inc()
		}
		if err != nil {
			if err != io.EOF {
				n.logger.Printf("Error reading %s: %v", stream, err)
			}
			return
		}
	}
}

// wait joins the collectors, reaps the process, and drives the
// terminal transition.  Collectors must finish first: Cmd.Wait closes
// the pipes, and joining avoids losing buffered output.
func (n *Node) wait() {
	n.collected.Wait()
	err := n.cmd.Wait()

	n.mx.Lock()
	info := &ExitInfo{Time: time.Now()}
	if ps := n.cmd.ProcessState; ps != nil {
		info.Code = ps.ExitCode()
		if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			info.Signal = ws.Signal().String()
		}
	}
	switch {
	case n.stopping:
		// Explicit termination lands in Terminated no matter how the
		// process chose to exit.
		n.state = StateTerminated
	case err == nil:
		n.state = StateTerminated
	default:
		n.state = StateFailed
		info.Reason = err.Error()
	}
	n.exit = info
	st := n.state
	n.mx.Unlock()

	n.log.Freeze()
	if info.Signal != "" {
		n.logger.Printf("Exited (%s): signal %s", st, info.Signal)
	} else {
		n.logger.Printf("Exited (%s): code %d", st, info.Code)
	}
	close(n.done)
	if n.onExit != nil {
		n.onExit(n)
	}
}

// fail transitions a node that never reached Running into Failed.
func (n *Node) fail(reason string) {
	n.mx.Lock()
	n.state = StateFailed
	n.exit = &ExitInfo{Code: -1, Time: time.Now(), Reason: reason}
	n.mx.Unlock()
	n.log.Freeze()
	n.logger.Printf("Failed: %s", reason)
	close(n.done)
}

// beginStop marks the node as being explicitly terminated and returns
// the command handle to signal.  ErrInvalidState if the node already
// reached a terminal state.
func (n *Node) beginStop() (*exec.Cmd, error) {
	n.mx.Lock()
	defer n.mx.Unlock()
	if n.state.Terminal() {
		return nil, ErrInvalidState
	}
	n.stopping = true
	return n.cmd, nil
}

// cmdRef re-reads the command handle; Terminate uses it at kill
// escalation in case the spawn raced the first signal.
func (n *Node) cmdRef() *exec.Cmd {
	n.mx.Lock()
	defer n.mx.Unlock()
	return n.cmd
}
