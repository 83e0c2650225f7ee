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
	"errors"
	"log"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Config controls a Supervisor instance.  The zero value is usable:
// it launches through "ros2" with a five second grace period, no ROS
// environment overlay, and unlimited record retention.
type Config struct {
	Name        string        // instance name, used in log messages
	Launcher    string        // launcher program, default "ros2"
	RosDistro   string        // distro whose setup script seeds the node environment
	GracePeriod time.Duration // wait after SIGTERM before escalating to SIGKILL
	MaxLog      int           // retained output lines per node, default MaxLogRecords
	MaxTerminal int           // retained terminal records, 0 = keep until removed
	Logger      *log.Logger
}

// Supervisor launches, terminates, and inspects named node processes.
// The injected Registry is the only shared mutable structure; no lock
// is held while a child is being spawned, so a slow spawn never stalls
// operations on other names.
type Supervisor struct {
	name     string
	launcher string
	grace    time.Duration
	maxLog   int
	maxTerm  int
	env      []string
	logger   *log.Logger
	registry *Registry

	mx         sync.Mutex
	serial     int64
	listSerial int64
	createTime time.Time
	updateTime time.Time
	cvs        map[*sync.Cond]bool
}

// SupervisorInfo is top-level information about a Supervisor, captured
// consistently.
type SupervisorInfo struct {
	Name       string    `json:"name"`
	Serial     int64     `json:"serial,string"`
	CreateTime time.Time `json:"create_time"`
	UpdateTime time.Time `json:"update_time"`
}

func (s *Supervisor) lock() {
	s.mx.Lock()
}

func (s *Supervisor) unlock() {
	s.mx.Unlock()
}

func (s *Supervisor) wakeUp() {
	// NB: the lock must be held here, or woken goroutines may miss
	// the updated serial number.
	for cv := range s.cvs {
		cv.Broadcast()
	}
}

// bumpSerial increments the serial and notifies watchers.  Call with
// the lock held.
func (s *Supervisor) bumpSerial() int64 {
	s.updateTime = time.Now()
	s.serial++
	rv := s.serial
	s.wakeUp()
	return rv
}

// watchSerial monitors a specific serial number for change.  It
// returns the new value once it differs from old, or the old value if
// the expiration passes first.  A zero expiration makes this a poll.
func (s *Supervisor) watchSerial(old int64, src *int64, expire time.Duration) int64 {
	expired := false
	cv := sync.NewCond(&s.mx)
	var timer *time.Timer
	var rv int64

	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			s.lock()
			expired = true
			cv.Broadcast()
			s.unlock()
		})
	} else {
		expired = true
	}

	s.lock()
	s.cvs[cv] = true
	for {
		rv = *src
		if rv != old || expired {
			break
		}
		cv.Wait()
	}
	delete(s.cvs, cv)
	s.unlock()
	if timer != nil {
		timer.Stop()
	}
	return rv
}

// WatchSerial monitors for any state change in the supervisor.
func (s *Supervisor) WatchSerial(old int64, expire time.Duration) int64 {
	return s.watchSerial(old, &s.serial, expire)
}

// WatchNodes monitors for a change in the set of registered nodes.
func (s *Supervisor) WatchNodes(old int64, expire time.Duration) int64 {
	return s.watchSerial(old, &s.listSerial, expire)
}

// Serial returns the global serial number, incremented on every node
// state change.
func (s *Supervisor) Serial() int64 {
	s.lock()
	rv := s.serial
	s.unlock()
	return rv
}

// ListSerial returns the serial number of the node list.
func (s *Supervisor) ListSerial() int64 {
	s.lock()
	rv := s.listSerial
	s.unlock()
	return rv
}

func (s *Supervisor) Name() string {
	return s.name
}

// GetInfo returns top-level information about the Supervisor.
func (s *Supervisor) GetInfo() *SupervisorInfo {
	s.lock()
	i := &SupervisorInfo{
		Name:       s.name,
		Serial:     s.serial,
		CreateTime: s.createTime,
		UpdateTime: s.updateTime,
	}
	s.unlock()
	return i
}

// Launch validates the spec, claims the name, and spawns the node.
// The call returns once the record is registered and the spawn syscall
// has completed; it does not wait for the node to initialize, and the
// node keeps running after the call returns.
//
// Spec and name errors return before any record exists.  A spawn
// failure leaves the record in place, in the Failed state with an
// explanatory reason, and additionally returns a *SpawnError.
func (s *Supervisor) Launch(spec LaunchSpec) (*Node, error) {
	if err := spec.Validate(); err != nil {
		launchesTotal.WithLabelValues("invalid_spec").Inc()
		return nil, err
	}

	logger := log.New(s.logger.Writer(), "["+spec.Name+"] ", s.logger.Flags())
	n := newNode(spec, logger, s.maxLog, s.reaped)

	// Insert is the atomic uniqueness check; there is deliberately no
	// separate pre-check that could race with it.
	if err := s.registry.Insert(n); err != nil {
		launchesTotal.WithLabelValues("name_conflict").Inc()
		return nil, err
	}
	s.evictTerminal()
	s.lock()
	s.listSerial = s.bumpSerial()
	s.unlock()

	cmd := exec.Command(s.launcher, spec.Args()...)
	cmd.Env = s.env
	setNewProcessGroup(cmd)

	if err := n.start(cmd); err != nil {
		launchesTotal.WithLabelValues("spawn_failure").Inc()
		s.lock()
		s.bumpSerial()
		s.unlock()
		return n, &SpawnError{Name: spec.Name, Err: err}
	}

	launchesTotal.WithLabelValues("ok").Inc()
	nodesRunning.Inc()
	s.lock()
	s.bumpSerial()
	s.unlock()
	s.logf("Launched node %s: %s %s", spec.Name, s.launcher,
		strings.Join(spec.Args(), " "))
	return n, nil
}

// reaped runs on the node's waiter goroutine after the terminal
// transition.
func (s *Supervisor) reaped(n *Node) {
	nodesRunning.Dec()
	s.lock()
	s.bumpSerial()
	s.unlock()
}

// Terminate stops the named node and blocks until its process has
// been confirmed exited and reaped, so there is no window after the
// call returns in which the process is still schedulable.  The whole
// process group gets SIGTERM first; if the node has not exited within
// the grace period it gets SIGKILL.
//
// ErrNotFound if the name is unknown, ErrInvalidState if the node has
// already reached a terminal state.
func (s *Supervisor) Terminate(name string) error {
	n, ok := s.registry.Get(name)
	if !ok {
		return ErrNotFound
	}
	cmd, err := n.beginStop()
	if err != nil {
		return err
	}
	if err := signalProcessGroup(cmd, syscall.SIGTERM); err != nil {
		s.logf("Failed sending SIGTERM to %s: %v", name, err)
	}
	select {
	case <-n.Done():
	case <-time.After(s.grace):
		s.logf("Node %s did not exit within %v; killing", name, s.grace)
		killEscalationsTotal.Inc()
		if err := signalProcessGroup(n.cmdRef(), syscall.SIGKILL); err != nil {
			s.logf("Failed killing %s: %v", name, err)
		}
		<-n.Done()
	}
	terminationsTotal.Inc()
	s.logf("Node %s terminated", name)
	return nil
}

// Status returns a snapshot of the named record, including its
// captured output.  ErrNotFound if the name is unknown.
func (s *Supervisor) Status(name string) (*NodeStatus, error) {
	n, ok := s.registry.Get(name)
	if !ok {
		return nil, ErrNotFound
	}
	return n.Status(0), nil
}

// GetNode returns the live record for name.
func (s *Supervisor) GetNode(name string) (*Node, bool) {
	return s.registry.Get(name)
}

// Names returns the currently registered node names, terminal records
// included.
func (s *Supervisor) Names() []string {
	return s.registry.Names()
}

// Nodes returns the currently registered records.
func (s *Supervisor) Nodes() []*Node {
	return s.registry.Nodes()
}

// Remove deletes a terminal record, releasing its name for reuse.
// ErrInvalidState while the node is still starting or running.
func (s *Supervisor) Remove(name string) error {
	n, ok := s.registry.Get(name)
	if !ok {
		return ErrNotFound
	}
	if !n.State().Terminal() {
		return ErrInvalidState
	}
	if err := s.registry.Remove(name); err != nil {
		return err
	}
	s.lock()
	s.listSerial = s.bumpSerial()
	s.unlock()
	s.logf("Removed node %s", name)
	return nil
}

// evictTerminal enforces the optional retention cap by removing the
// oldest terminal records.  Live records are never evicted.
func (s *Supervisor) evictTerminal() {
	if s.maxTerm <= 0 {
		return
	}
	var term []*Node
	for _, n := range s.registry.Nodes() {
		if n.State().Terminal() {
			term = append(term, n)
		}
	}
	if len(term) <= s.maxTerm {
		return
	}
	sort.Slice(term, func(i, j int) bool {
		return term[i].Exit().Time.Before(term[j].Exit().Time)
	})
	for _, n := range term[:len(term)-s.maxTerm] {
		if s.registry.Remove(n.Name()) == nil {
			s.logf("Evicted terminal node %s", n.Name())
		}
	}
	s.lock()
	s.listSerial = s.bumpSerial()
	s.unlock()
}

// Shutdown terminates every non-terminal node, best effort, and
// returns once they have all been reaped.  Records are left behind;
// a restarted supervisor does not recover them.
func (s *Supervisor) Shutdown() {
	var wg sync.WaitGroup
	for _, n := range s.registry.Nodes() {
		if n.State().Terminal() {
			continue
		}
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			err := s.Terminate(name)
			if err != nil && !errors.Is(err, ErrInvalidState) {
				s.logf("Shutdown: failed to terminate %s: %v", name, err)
			}
		}(n.Name())
	}
	wg.Wait()
	s.logf("*** Rosvisor shut down: %s ***", s.name)
}

func (s *Supervisor) logf(format string, v ...interface{}) {
	s.logger.Printf(format, v...)
}

// NewSupervisor returns a Supervisor using the given registry, or a
// fresh one if registry is nil.
func NewSupervisor(cfg Config, registry *Registry) *Supervisor {
	if cfg.Name == "" {
		cfg.Name = "rosvisor"
	}
	if cfg.Launcher == "" {
		cfg.Launcher = "ros2"
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	if registry == nil {
		registry = NewRegistry()
	}
	env, err := rosEnviron(cfg.RosDistro)

	// The origin serial is the current timestamp in nsec, so that
	// clients which cache serials see an invalidation if the server
	// restarts.
	s := &Supervisor{
		name:       cfg.Name,
		launcher:   cfg.Launcher,
		grace:      cfg.GracePeriod,
		maxLog:     cfg.MaxLog,
		maxTerm:    cfg.MaxTerminal,
		env:        env,
		logger:     cfg.Logger,
		registry:   registry,
		serial:     time.Now().UnixNano(),
		cvs:        make(map[*sync.Cond]bool),
		createTime: time.Now(),
	}
	s.listSerial = s.serial
	s.updateTime = s.createTime
	if err != nil {
		s.logf("Failed to source ROS environment for %q: %v", cfg.RosDistro, err)
	}
	return s
}
