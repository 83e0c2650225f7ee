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
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rosvisor/rosvisor"
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch a node",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		pkg, _ := cmd.Flags().GetString("package")
		executable, _ := cmd.Flags().GetString("executable")
		launchFile, _ := cmd.Flags().GetString("launch-file")
		params, _ := cmd.Flags().GetStringToString("param")

		spec := rosvisor.LaunchSpec{
			Name:       name,
			Package:    pkg,
			Executable: executable,
			LaunchFile: launchFile,
			Parameters: params,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := newClient().Launch(ctx, spec); err != nil {
			return fmt.Errorf("failed to launch node: %w", err)
		}
		fmt.Printf("Node %q launched\n", name)
		return nil
	},
}

var terminateCmd = &cobra.Command{
	Use:   "terminate <name>",
	Short: "Terminate a node and wait for it to be reaped",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Terminate is synchronous on the server; allow for the full
		// grace period plus slack before giving up on the response.
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := newClient().Terminate(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to terminate node: %w", err)
		}
		fmt.Printf("Node %q terminated\n", args[0])
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show the state and recent output of a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		st, err := newClient().Status(ctx, args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintf(w, "Name:\t%s\n", st.Name)
		fmt.Fprintf(w, "Id:\t%s\n", st.Id)
		fmt.Fprintf(w, "State:\t%s\n", st.State)
		if st.Pid != 0 {
			fmt.Fprintf(w, "Pid:\t%d\n", st.Pid)
		}
		if st.Exit != nil {
			if st.Exit.Signal != "" {
				fmt.Fprintf(w, "Exit:\t%s\n", st.Exit.Signal)
			} else {
				fmt.Fprintf(w, "Exit:\t%d\n", st.Exit.Code)
			}
			if st.Exit.Reason != "" {
				fmt.Fprintf(w, "Reason:\t%s\n", st.Exit.Reason)
			}
		}
		w.Flush()
		for _, rec := range st.Log {
			fmt.Printf("%s %s> %s\n",
				rec.Time.Format(time.RFC3339), rec.Stream, rec.Text)
		}
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs <name>",
	Short: "Show the captured output of a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		recs, _, err := newClient().Log(ctx, args[0], 0)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			fmt.Printf("%s %s> %s\n",
				rec.Time.Format(time.RFC3339), rec.Stream, rec.Text)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		names, _, err := newClient().Nodes(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a terminated node record, freeing its name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := newClient().Remove(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Node %q removed\n", args[0])
		return nil
	},
}

func init() {
	launchCmd.Flags().String("name", "", "unique node name")
	launchCmd.Flags().String("package", "", "ROS package")
	launchCmd.Flags().String("executable", "", "executable to run")
	launchCmd.Flags().String("launch-file", "", "launch file to start")
	launchCmd.Flags().StringToStringP("param", "p", nil, "node parameter (key=value)")
	launchCmd.MarkFlagRequired("name")
	launchCmd.MarkFlagRequired("package")

	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(terminateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(removeCmd)
}
