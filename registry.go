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
	"sync"
)

// Registry is the concurrency-safe mapping from node name to record.
// It is the sole synchronization point for name ownership: Insert is
// the atomic uniqueness check, so callers never pre-check and race.
// A name stays claimed until the record is removed, even after the
// node has reached a terminal state.
//
// Registries are injected into Supervisors at construction, so tests
// can run several independent supervisors side by side.
type Registry struct {
	mx    sync.Mutex
	nodes map[string]*Node
}

func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]*Node)}
}

// Insert claims the node's name.  ErrNameConflict if the name is
// present, whether or not the prior record is terminal; terminal
// records must be removed before their name can be reused.
func (r *Registry) Insert(n *Node) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if _, ok := r.nodes[n.Name()]; ok {
		return ErrNameConflict
	}
	r.nodes[n.Name()] = n
	return nil
}

func (r *Registry) Get(name string) (*Node, bool) {
	r.mx.Lock()
	n, ok := r.nodes[name]
	r.mx.Unlock()
	return n, ok
}

// Names returns a snapshot of the registered names.  The order is
// arbitrary and carries no meaning.
func (r *Registry) Names() []string {
	r.mx.Lock()
	rv := make([]string, 0, len(r.nodes))
	for name := range r.nodes {
		rv = append(rv, name)
	}
	r.mx.Unlock()
	return rv
}

// Nodes returns a snapshot of the registered records.
func (r *Registry) Nodes() []*Node {
	r.mx.Lock()
	rv := make([]*Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		rv = append(rv, n)
	}
	r.mx.Unlock()
	return rv
}

func (r *Registry) Remove(name string) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if _, ok := r.nodes[name]; !ok {
		return ErrNotFound
	}
	delete(r.nodes, name)
	return nil
}

func (r *Registry) Len() int {
	r.mx.Lock()
	rv := len(r.nodes)
	r.mx.Unlock()
	return rv
}
