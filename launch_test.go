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
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLaunchSpecValidate(t *testing.T) {
	Convey("Spec validation", t, func() {
		Convey("An executable spec is valid", func() {
			s := LaunchSpec{Name: "n1", Package: "demo", Executable: "talker"}
			So(s.Validate(), ShouldBeNil)
		})
		Convey("A launch file spec is valid", func() {
			s := LaunchSpec{Name: "n1", Package: "demo", LaunchFile: "all.launch.py"}
			So(s.Validate(), ShouldBeNil)
		})
		Convey("Executable and launch file are mutually exclusive", func() {
			s := LaunchSpec{Name: "n1", Package: "demo",
				Executable: "talker", LaunchFile: "all.launch.py"}
			So(s.Validate(), ShouldEqual, ErrInvalidSpec)
		})
		Convey("One of executable or launch file is required", func() {
			s := LaunchSpec{Name: "n1", Package: "demo"}
			So(s.Validate(), ShouldEqual, ErrInvalidSpec)
		})
		Convey("Name and package are required", func() {
			s := LaunchSpec{Package: "demo", Executable: "talker"}
			So(s.Validate(), ShouldEqual, ErrInvalidSpec)
			s = LaunchSpec{Name: "n1", Executable: "talker"}
			So(s.Validate(), ShouldEqual, ErrInvalidSpec)
		})
	})
}

func TestLaunchSpecArgs(t *testing.T) {
	Convey("Argument building", t, func() {
		Convey("An executable uses the run verb", func() {
			s := LaunchSpec{Name: "n1", Package: "demo", Executable: "talker"}
			So(s.Args(), ShouldResemble, []string{"run", "demo", "talker"})
		})
		Convey("A launch file uses the launch verb", func() {
			s := LaunchSpec{Name: "n1", Package: "demo", LaunchFile: "all.launch.py"}
			So(s.Args(), ShouldResemble, []string{"launch", "demo", "all.launch.py"})
		})
		Convey("Parameters serialize one group per entry, in key order", func() {
			s := LaunchSpec{
				Name: "n1", Package: "demo", Executable: "talker",
				Parameters: map[string]string{
					"rate":  "10",
					"frame": "base_link",
				},
			}
			So(s.Args(), ShouldResemble, []string{
				"run", "demo", "talker",
				"--ros-args", "-p", "frame:=base_link",
				"--ros-args", "-p", "rate:=10",
			})
		})
	})
}

func TestRosEnviron(t *testing.T) {
	Convey("An empty distro yields the plain environment", t, func() {
		env, err := rosEnviron("")
		So(err, ShouldBeNil)
		So(len(env), ShouldBeGreaterThan, 0)
	})
	Convey("A distro without a setup script yields the plain environment", t, func() {
		env, err := rosEnviron("no_such_distro")
		So(err, ShouldBeNil)
		So(len(env), ShouldBeGreaterThan, 0)
	})
}
