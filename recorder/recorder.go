// Copyright 2026 Helio MDO Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package recorder provides the public iteration-recording API for the
// Helio MDO framework: per-iteration (name → value) snapshots of the
// parameter and unknown vectors persisted to SQLite on rank 0.
package recorder

import (
	"github.com/helio-mdo/helio/internal/comm"
	"github.com/helio-mdo/helio/internal/recorder"
)

// Recorder writes iteration history. Non-root ranks receive a no-op
// handle, so callers record unconditionally.
type Recorder = recorder.Recorder

// New opens (or creates) the database at path on rank 0 of c.
//
// Example:
//
//	rec, err := recorder.New("run.db", c)
//	if err != nil {
//	    return err
//	}
//	defer rec.Close()
//	rec.RecordIteration("driver/1", time.Now(), params, unknowns)
func New(path string, c comm.Communicator) (*Recorder, error) {
	return recorder.New(path, c)
}
