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

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rosvisor/rosvisor/rest"
)

var (
	serverURL string
	authUser  string
	authPass  string
)

var rootCmd = &cobra.Command{
	Use:           "rosvisor",
	Short:         "Manage ROS 2 nodes running under rosvisord",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		getEnvOrDefault("ROSVISOR_SERVER", "http://127.0.0.1:8322"),
		"rosvisord base URL")
	rootCmd.PersistentFlags().StringVar(&authUser, "user",
		os.Getenv("ROSVISOR_USER"), "basic auth user")
	rootCmd.PersistentFlags().StringVar(&authPass, "pass",
		os.Getenv("ROSVISOR_PASS"), "basic auth password")
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newClient() *rest.Client {
	c := rest.NewClient(nil, serverURL)
	if authUser != "" {
		c.SetAuth(authUser, authPass)
	}
	return c
}
