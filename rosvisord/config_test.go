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

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConf(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "rosvisord.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	Convey("Config loading", t, func() {
		Convey("No file yields the defaults", func() {
			cfg, err := loadConfig("")
			So(err, ShouldBeNil)
			So(cfg.Listen, ShouldEqual, "127.0.0.1:8322")
			So(cfg.Launcher, ShouldEqual, "ros2")
			So(time.Duration(cfg.GracePeriod), ShouldEqual, 5*time.Second)
			So(cfg.Metrics, ShouldBeTrue)
			So(cfg.Auth, ShouldBeNil)
		})

		Convey("A file overrides the defaults", func() {
			path := writeConf(t, `
listen = "0.0.0.0:9000"
name = "bench1"
ros-distro = "jazzy"
grace-period = "500ms"
max-terminal = 10
metrics = false

[auth]
user = "ops"
pass = "secret"
`)
			cfg, err := loadConfig(path)
			So(err, ShouldBeNil)
			So(cfg.Listen, ShouldEqual, "0.0.0.0:9000")
			So(cfg.Name, ShouldEqual, "bench1")
			So(cfg.RosDistro, ShouldEqual, "jazzy")
			So(time.Duration(cfg.GracePeriod), ShouldEqual, 500*time.Millisecond)
			So(cfg.MaxTerminal, ShouldEqual, 10)
			So(cfg.Metrics, ShouldBeFalse)

			// Unset keys keep their defaults.
			So(cfg.Launcher, ShouldEqual, "ros2")

			So(cfg.Auth, ShouldNotBeNil)
			So(cfg.Auth.User, ShouldEqual, "ops")
			So(cfg.Auth.Pass, ShouldEqual, "secret")
		})

		Convey("A bad grace period is an error", func() {
			path := writeConf(t, `grace-period = "soon"`)
			_, err := loadConfig(path)
			So(err, ShouldNotBeNil)
		})

		Convey("A missing file is an error", func() {
			_, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml"))
			So(err, ShouldNotBeNil)
		})
	})
}
