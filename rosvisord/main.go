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

// Command rosvisord serves a rosvisor Supervisor over HTTP.
package main

import (
	"crypto/subtle"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rosvisor/rosvisor"
	"github.com/rosvisor/rosvisor/rest"
)

var (
	addr     string
	confPath string
	name     string
	launcher string
	distro   string
	grace    time.Duration
)

func basicAuth(auth *AuthConfig, next http.Handler) http.Handler {
	if auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		userOk := subtle.ConstantTimeCompare([]byte(user), []byte(auth.User)) == 1
		passOk := subtle.ConstantTimeCompare([]byte(pass), []byte(auth.Pass)) == 1
		if !ok || !userOk || !passOk {
			w.Header().Set("WWW-Authenticate", `Basic realm="rosvisor"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	flag.StringVar(&confPath, "c", "", "configuration file")
	flag.StringVar(&addr, "a", "", "listen address")
	flag.StringVar(&name, "n", "", "supervisor name")
	flag.StringVar(&launcher, "l", "", "launcher program")
	flag.StringVar(&distro, "r", "", "ROS distro to source")
	flag.DurationVar(&grace, "g", 0, "termination grace period")
	flag.Parse()

	cfg, err := loadConfig(confPath)
	if err != nil {
		log.Fatalf("Failed to load configuration %s: %v", confPath, err)
	}
	if addr != "" {
		cfg.Listen = addr
	}
	if name != "" {
		cfg.Name = name
	}
	if launcher != "" {
		cfg.Launcher = launcher
	}
	if distro != "" {
		cfg.RosDistro = distro
	}
	if grace > 0 {
		cfg.GracePeriod = Duration(grace)
	}

	s := rosvisor.NewSupervisor(rosvisor.Config{
		Name:        cfg.Name,
		Launcher:    cfg.Launcher,
		RosDistro:   cfg.RosDistro,
		GracePeriod: time.Duration(cfg.GracePeriod),
		MaxLog:      cfg.MaxLog,
		MaxTerminal: cfg.MaxTerminal,
	}, nil)

	mux := http.NewServeMux()
	if cfg.Metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", basicAuth(cfg.Auth, rest.NewHandler(s)))

	go func() {
		log.Fatal(http.ListenAndServe(cfg.Listen, mux))
	}()
	log.Printf("rosvisord listening on %s", cfg.Listen)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Wait for a termination signal, and shut down cleanly if we get
	// one: every running node is signaled and reaped before exit.
	<-sigs
	s.Shutdown()
	os.Exit(0)
}
