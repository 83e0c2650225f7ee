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

//go:build unix

// These tests spawn real child processes through the bundled
// launcher_test.sh stub, so they depend on a POSIX shell.

package rosvisor

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type testLog struct {
	t *testing.T
}

func (tl *testLog) Write(b []byte) (int, error) {
	tl.t.Log(strings.TrimRight(string(b), "\n"))
	return len(b), nil
}

func testConfig(t *testing.T) Config {
	return Config{
		Name:        t.Name(),
		Launcher:    "./launcher_test.sh",
		GracePeriod: time.Second,
		Logger:      log.New(&testLog{t: t}, "", 0),
	}
}

// runSpec builds a spec that selects one of the stub launcher's
// canned behaviors.
func runSpec(name, target string) LaunchSpec {
	return LaunchSpec{Name: name, Package: "demo", Executable: target}
}

func waitDone(n *Node, d time.Duration) bool {
	select {
	case <-n.Done():
		return true
	case <-time.After(d):
		return false
	}
}

func waitState(n *Node, st State, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if n.State() == st {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return n.State() == st
}

func logText(n *Node) []string {
	recs, _ := n.GetLog(0)
	var lines []string
	for _, r := range recs {
		lines = append(lines, r.Text)
	}
	return lines
}

func TestLaunchLifecycle(t *testing.T) {
	Convey("Given a supervisor", t, func() {
		s := NewSupervisor(testConfig(t), nil)
		Reset(func() {
			s.Shutdown()
		})

		Convey("A short-lived node runs to completion", func() {
			n, err := s.Launch(runSpec("n1", "echo_once"))
			So(err, ShouldBeNil)
			So(n, ShouldNotBeNil)
			So(n.Pid(), ShouldNotEqual, 0)
			So(waitDone(n, 5*time.Second), ShouldBeTrue)
			So(n.State(), ShouldEqual, StateTerminated)

			exit := n.Exit()
			So(exit, ShouldNotBeNil)
			So(exit.Code, ShouldEqual, 0)
			So(logText(n), ShouldContain, "hello from demo")

			st, err := s.Status("n1")
			So(err, ShouldBeNil)
			So(st.Name, ShouldEqual, "n1")
			So(st.Id, ShouldEqual, n.Id())
			So(st.State, ShouldEqual, StateTerminated)
			So(st.Started.IsZero(), ShouldBeFalse)
		})

		Convey("A failing node lands in the failed state", func() {
			n, err := s.Launch(runSpec("n1", "fail"))
			So(err, ShouldBeNil)
			So(waitDone(n, 5*time.Second), ShouldBeTrue)
			So(n.State(), ShouldEqual, StateFailed)

			exit := n.Exit()
			So(exit, ShouldNotBeNil)
			So(exit.Code, ShouldEqual, 3)
			So(exit.Reason, ShouldNotBeBlank)
			So(logText(n), ShouldContain, "boom")
		})

		Convey("Every launch changes the serial number", func() {
			old := s.Serial()
			n, err := s.Launch(runSpec("n1", "echo_once"))
			So(err, ShouldBeNil)
			So(s.Serial(), ShouldNotEqual, old)
			So(waitDone(n, 5*time.Second), ShouldBeTrue)
		})
	})
}

func TestLaunchNameConflict(t *testing.T) {
	Convey("Given a supervisor with a running node", t, func() {
		s := NewSupervisor(testConfig(t), nil)
		Reset(func() {
			s.Shutdown()
		})
		n, err := s.Launch(runSpec("n1", "sleep_forever"))
		So(err, ShouldBeNil)
		So(waitState(n, StateRunning, 5*time.Second), ShouldBeTrue)

		Convey("A second launch of the same name is refused", func() {
			_, err := s.Launch(runSpec("n1", "echo_once"))
			So(errors.Is(err, ErrNameConflict), ShouldBeTrue)
			So(len(s.Names()), ShouldEqual, 1)
		})

		Convey("The name stays claimed after the node exits", func() {
			So(s.Terminate("n1"), ShouldBeNil)
			_, err := s.Launch(runSpec("n1", "echo_once"))
			So(errors.Is(err, ErrNameConflict), ShouldBeTrue)
		})
	})
}

func TestLaunchConcurrent(t *testing.T) {
	Convey("Concurrent launches of one name admit exactly one", t, func() {
		s := NewSupervisor(testConfig(t), nil)
		Reset(func() {
			s.Shutdown()
		})

		const attempts = 8
		errs := make([]error, attempts)
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = s.Launch(runSpec("n1", "echo_once"))
			}(i)
		}
		wg.Wait()

		won := 0
		for _, err := range errs {
			if err == nil {
				won++
			} else {
				So(errors.Is(err, ErrNameConflict), ShouldBeTrue)
			}
		}
		So(won, ShouldEqual, 1)
		So(len(s.Names()), ShouldEqual, 1)
	})
}

func TestLaunchInvalidSpec(t *testing.T) {
	Convey("Given a supervisor", t, func() {
		s := NewSupervisor(testConfig(t), nil)
		Reset(func() {
			s.Shutdown()
		})

		check := func(spec LaunchSpec) {
			_, err := s.Launch(spec)
			So(errors.Is(err, ErrInvalidSpec), ShouldBeTrue)
			So(len(s.Names()), ShouldEqual, 0)
		}

		Convey("Both executable and launch file are rejected", func() {
			check(LaunchSpec{Name: "n1", Package: "demo",
				Executable: "a", LaunchFile: "b"})
		})
		Convey("Neither executable nor launch file is rejected", func() {
			check(LaunchSpec{Name: "n1", Package: "demo"})
		})
		Convey("A missing name is rejected", func() {
			check(LaunchSpec{Package: "demo", Executable: "a"})
		})
		Convey("A missing package is rejected", func() {
			check(LaunchSpec{Name: "n1", Executable: "a"})
		})
	})
}

func TestLaunchSpawnFailure(t *testing.T) {
	Convey("A launcher that cannot spawn leaves a failed record", t, func() {
		cfg := testConfig(t)
		cfg.Launcher = "/nonexistent/launcher"
		s := NewSupervisor(cfg, nil)
		Reset(func() {
			s.Shutdown()
		})

		n, err := s.Launch(runSpec("n1", "echo_once"))
		So(err, ShouldNotBeNil)
		var se *SpawnError
		So(errors.As(err, &se), ShouldBeTrue)
		So(se.Name, ShouldEqual, "n1")

		So(n, ShouldNotBeNil)
		So(waitDone(n, time.Second), ShouldBeTrue)
		So(n.State(), ShouldEqual, StateFailed)
		So(n.Exit().Reason, ShouldNotBeBlank)
		So(s.Names(), ShouldContain, "n1")
	})
}

func TestTerminate(t *testing.T) {
	Convey("Given a supervisor with a long-running node", t, func() {
		s := NewSupervisor(testConfig(t), nil)
		Reset(func() {
			s.Shutdown()
		})
		n, err := s.Launch(runSpec("n1", "sleep_forever"))
		So(err, ShouldBeNil)
		So(waitState(n, StateRunning, 5*time.Second), ShouldBeTrue)
		pid := n.Pid()
		So(pid, ShouldNotEqual, 0)

		Convey("Terminate reaps the process before returning", func() {
			So(s.Terminate("n1"), ShouldBeNil)
			So(n.State(), ShouldEqual, StateTerminated)

			// The pid must be gone, not merely signaled.
			So(syscall.Kill(pid, 0), ShouldNotBeNil)

			exit := n.Exit()
			So(exit, ShouldNotBeNil)
			So(exit.Signal, ShouldEqual, "terminated")

			Convey("Terminating again is an invalid state", func() {
				err := s.Terminate("n1")
				So(errors.Is(err, ErrInvalidState), ShouldBeTrue)
			})
		})

		Convey("Terminating an unknown name is not found", func() {
			err := s.Terminate("ghost")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestTerminateEscalation(t *testing.T) {
	Convey("A node ignoring SIGTERM is killed after the grace period", t, func() {
		cfg := testConfig(t)
		cfg.GracePeriod = 100 * time.Millisecond
		s := NewSupervisor(cfg, nil)
		Reset(func() {
			s.Shutdown()
		})

		n, err := s.Launch(runSpec("n1", "ignore_term"))
		So(err, ShouldBeNil)
		So(waitState(n, StateRunning, 5*time.Second), ShouldBeTrue)
		pid := n.Pid()

		So(s.Terminate("n1"), ShouldBeNil)
		So(n.State(), ShouldEqual, StateTerminated)
		So(n.Exit().Signal, ShouldEqual, "killed")
		So(syscall.Kill(pid, 0), ShouldNotBeNil)
	})
}

func TestRemove(t *testing.T) {
	Convey("Given a supervisor", t, func() {
		s := NewSupervisor(testConfig(t), nil)
		Reset(func() {
			s.Shutdown()
		})

		Convey("Removing a terminal record frees its name", func() {
			n, err := s.Launch(runSpec("n1", "echo_once"))
			So(err, ShouldBeNil)
			So(waitDone(n, 5*time.Second), ShouldBeTrue)

			So(s.Remove("n1"), ShouldBeNil)
			_, err = s.Status("n1")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)

			n2, err := s.Launch(runSpec("n1", "echo_once"))
			So(err, ShouldBeNil)
			So(n2.Id(), ShouldNotEqual, n.Id())
			So(waitDone(n2, 5*time.Second), ShouldBeTrue)
		})

		Convey("Removing a running node is an invalid state", func() {
			n, err := s.Launch(runSpec("n1", "sleep_forever"))
			So(err, ShouldBeNil)
			So(waitState(n, StateRunning, 5*time.Second), ShouldBeTrue)
			So(errors.Is(s.Remove("n1"), ErrInvalidState), ShouldBeTrue)
			So(s.Terminate("n1"), ShouldBeNil)
		})

		Convey("Removing an unknown name is not found", func() {
			So(errors.Is(s.Remove("ghost"), ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestOutputCapture(t *testing.T) {
	Convey("Given a supervisor", t, func() {
		s := NewSupervisor(testConfig(t), nil)
		Reset(func() {
			s.Shutdown()
		})

		Convey("Lines come back complete, in order, without loss", func() {
			n, err := s.Launch(runSpec("n1", "count"))
			So(err, ShouldBeNil)
			So(waitDone(n, 5*time.Second), ShouldBeTrue)

			recs, _ := n.GetLog(0)
			So(len(recs), ShouldEqual, 20)
			for i, r := range recs {
				So(r.Text, ShouldEqual, "line "+strconv.Itoa(i+1))
				So(r.Stream, ShouldEqual, StreamOut)
				if i > 0 {
					So(r.Id, ShouldBeGreaterThan, recs[i-1].Id)
				}
			}
		})

		Convey("Both streams are captured and tagged", func() {
			n, err := s.Launch(runSpec("n1", "echo_both"))
			So(err, ShouldBeNil)
			So(waitDone(n, 5*time.Second), ShouldBeTrue)

			recs, _ := n.GetLog(0)
			So(len(recs), ShouldEqual, 2)
			byStream := map[Stream]string{}
			for _, r := range recs {
				byStream[r.Stream] = r.Text
			}
			So(byStream[StreamOut], ShouldEqual, "to stdout")
			So(byStream[StreamErr], ShouldEqual, "to stderr")
		})

		Convey("A trailing partial line is flushed on exit", func() {
			n, err := s.Launch(runSpec("n1", "partial"))
			So(err, ShouldBeNil)
			So(waitDone(n, 5*time.Second), ShouldBeTrue)
			So(logText(n), ShouldContain, "no trailing newline")
		})
	})
}

func TestTerminalRetention(t *testing.T) {
	Convey("The retention cap evicts the oldest terminal records", t, func() {
		cfg := testConfig(t)
		cfg.MaxTerminal = 2
		s := NewSupervisor(cfg, nil)
		Reset(func() {
			s.Shutdown()
		})

		for _, name := range []string{"n1", "n2", "n3"} {
			n, err := s.Launch(runSpec(name, "echo_once"))
			So(err, ShouldBeNil)
			So(waitDone(n, 5*time.Second), ShouldBeTrue)
		}

		// The fourth launch pushes terminal records over the cap, so
		// the oldest one goes.
		n, err := s.Launch(runSpec("n4", "echo_once"))
		So(err, ShouldBeNil)
		So(waitDone(n, 5*time.Second), ShouldBeTrue)

		_, err = s.Status("n1")
		So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		So(len(s.Names()), ShouldEqual, 3)
		So(s.Names(), ShouldContain, "n4")
	})
}

func TestShutdown(t *testing.T) {
	Convey("Shutdown reaps every running node", t, func() {
		s := NewSupervisor(testConfig(t), nil)

		n1, err := s.Launch(runSpec("n1", "sleep_forever"))
		So(err, ShouldBeNil)
		n2, err := s.Launch(runSpec("n2", "sleep_forever"))
		So(err, ShouldBeNil)
		So(waitState(n1, StateRunning, 5*time.Second), ShouldBeTrue)
		So(waitState(n2, StateRunning, 5*time.Second), ShouldBeTrue)

		s.Shutdown()
		So(n1.State(), ShouldEqual, StateTerminated)
		So(n2.State(), ShouldEqual, StateTerminated)
		So(syscall.Kill(n1.Pid(), 0), ShouldNotBeNil)
		So(syscall.Kill(n2.Pid(), 0), ShouldNotBeNil)
	})
}

func TestWatchNodes(t *testing.T) {
	Convey("WatchNodes wakes when the node list changes", t, func() {
		s := NewSupervisor(testConfig(t), nil)
		Reset(func() {
			s.Shutdown()
		})

		old := s.ListSerial()
		go func() {
			time.Sleep(50 * time.Millisecond)
			s.Launch(runSpec("n1", "echo_once"))
		}()
		So(s.WatchNodes(old, 5*time.Second), ShouldNotEqual, old)

		Convey("and reports no change when nothing happens", func() {
			cur := s.ListSerial()
			So(s.WatchNodes(cur, 50*time.Millisecond), ShouldEqual, cur)
		})
	})
}
