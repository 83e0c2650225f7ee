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
	"time"
)

const (
	MaxLogRecords = 1000
)

// Stream tags a log record with the output stream it was captured
// from.
type Stream string

const (
	StreamOut Stream = "OUT"
	StreamErr Stream = "ERR"
)

// LogRecord is one captured line of node output.  Records from the
// same stream appear in the order the node wrote them; no ordering is
// guaranteed between the two streams.
type LogRecord struct {
	Id     int64     `json:"id,string"`
	Time   time.Time `json:"time"`
	Stream Stream    `json:"stream"`
	Text   string    `json:"text"`
}

// OutputLog is a bounded in-memory log of tagged output lines.  It is
// append-only while the owning node is alive, and frozen once the node
// reaches a terminal state.  Record IDs increase monotonically and are
// suitable for use as Etags in REST APIs.
type OutputLog struct {
	records    []LogRecord
	numRecords int
	maxRecords int
	id         int64
	frozen     bool
	cvs        map[*sync.Cond]bool
	mx         sync.Mutex
}

func (l *OutputLog) lock() {
	l.mx.Lock()
}

func (l *OutputLog) unlock() {
	l.mx.Unlock()
}

// Append adds a single line to the log.  Appends after Freeze are
// discarded.
func (l *OutputLog) Append(stream Stream, text string) {
	l.lock()
	if l.frozen {
		l.unlock()
		return
	}
	idx := l.numRecords % l.maxRecords
	l.id++
	l.records[idx].Id = l.id
	l.records[idx].Time = time.Now()
	l.records[idx].Stream = stream
	l.records[idx].Text = text
	// NB: numRecords may exceed maxRecords; we really use it to track
	// the next index, and to tell whether the ring has wrapped.
	l.numRecords++
	for cv := range l.cvs {
		cv.Broadcast()
	}
	l.unlock()
}

// Freeze marks the end of the log.  It is called exactly once, when
// the node is reaped, and wakes any watchers so they do not wait out
// their full expiration on a node that will never log again.
func (l *OutputLog) Freeze() {
	l.lock()
	l.frozen = true
	for cv := range l.cvs {
		cv.Broadcast()
	}
	l.unlock()
}

// GetRecords returns the retained records, as well as an ID suitable
// for use as an Etag.  If last matches the current ID then nil is
// returned immediately, so pollers do not duplicate records they have
// already seen.
func (l *OutputLog) GetRecords(last int64) ([]LogRecord, int64) {
	l.lock()
	if l.id == last {
		l.unlock()
		return nil, last
	}
	cnt := l.numRecords
	if cnt > l.maxRecords {
		cnt = l.maxRecords
	}
	recs := make([]LogRecord, 0, cnt)
	index := l.numRecords - cnt
	for j := 0; j < cnt; j++ {
		r := l.records[index%l.maxRecords]
		if r.Id > last {
			recs = append(recs, r)
		}
		index++
	}
	id := l.id
	l.unlock()
	return recs, id
}

// Watch blocks until the log has changed relative to last, the log is
// frozen, or the expiration passes.  It returns the current ID.  A
// zero expiration makes this a simple poll.
func (l *OutputLog) Watch(last int64, expire time.Duration) int64 {
	expired := false
	var timer *time.Timer
	cv := sync.NewCond(&l.mx)
	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			l.lock()
			expired = true
			cv.Broadcast()
			l.unlock()
		})
	} else {
		expired = true
	}

	l.lock()
	l.cvs[cv] = true
	for {
		if l.id != last || l.frozen || expired {
			break
		}
		cv.Wait()
	}
	delete(l.cvs, cv)
	last = l.id
	l.unlock()
	if timer != nil {
		timer.Stop()
	}
	return last
}

// NewOutputLog returns an OutputLog retaining up to max records; a
// non-positive max selects MaxLogRecords.
func NewOutputLog(max int) *OutputLog {
	if max <= 0 {
		max = MaxLogRecords
	}
	return &OutputLog{
		maxRecords: max,
		records:    make([]LogRecord, max),
		cvs:        make(map[*sync.Cond]bool),
	}
}
