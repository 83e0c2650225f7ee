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
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so TOML files can spell grace periods
// as "5s".
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config is the daemon configuration.  Flags override whatever the
// file sets.
type Config struct {
	Listen      string      `toml:"listen"`
	Name        string      `toml:"name"`
	Launcher    string      `toml:"launcher"`
	RosDistro   string      `toml:"ros-distro"`
	GracePeriod Duration    `toml:"grace-period"`
	MaxLog      int         `toml:"max-log"`
	MaxTerminal int         `toml:"max-terminal"`
	Metrics     bool        `toml:"metrics"`
	Auth        *AuthConfig `toml:"auth"`
}

// AuthConfig enables HTTP basic auth on the REST surface when
// present.
type AuthConfig struct {
	User string `toml:"user"`
	Pass string `toml:"pass"`
}

func defaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8322",
		Name:        "rosvisord",
		Launcher:    "ros2",
		GracePeriod: Duration(5 * time.Second),
		Metrics:     true,
	}
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
