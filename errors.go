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
	"fmt"
)

var (
	ErrNameConflict = errors.New("Node name already registered")
	ErrNotFound     = errors.New("Node not found")
	ErrInvalidState = errors.New("Operation not valid in current node state")
	ErrInvalidSpec  = errors.New("Exactly one of executable or launch file must be given")
)

// SpawnError reports an operating system level failure to create a
// node's process.  The record for the node still exists, in the Failed
// state, when Launch returns one of these.
type SpawnError struct {
	Name string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn node %q: %v", e.Name, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
