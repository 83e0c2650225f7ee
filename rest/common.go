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

// Package rest adapts a rosvisor.Supervisor to HTTP.  The server half
// exposes the supervisor's operations as JSON endpoints, and the
// client half gives Go programs a typed view of a remote supervisor.
// All protocol concerns (verbs, status codes, Etags) live here; the
// core communicates only via typed results and errors.
package rest

const (
	mimeJson = "application/json; charset=UTF-8"
)

var ok struct{}

// Error is the JSON failure body.  The code is the HTTP status the
// failure was mapped to.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}
