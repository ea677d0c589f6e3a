// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package osfs provides OS filesystem access for the include scanner's
// artifact layer.
package osfs

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"
	"time"

	"go.chromium.org/infra/build/incscan/o11y/clog"
	"go.chromium.org/infra/build/incscan/o11y/iometrics"
)

// OSFS provides read-only OS filesystem access, counting I/O metrics as it
// goes. The scanner only ever reads header files and stats/resolves paths;
// it never creates, writes, or deletes anything, so unlike a build tool's
// filesystem layer this one has no mutating methods.
type OSFS struct {
	*iometrics.IOMetrics
}

// New creates a new OSFS.
func New(name string) *OSFS {
	return &OSFS{IOMetrics: iometrics.New(name)}
}

func logSlow(ctx context.Context, name string, dur time.Duration, err error) {
	buf := make([]byte, 4*1024)
	n := runtime.Stack(buf, false)
	clog.Warningf(ctx, "slow op %s: %s %v\n%s", name, dur, err, buf[:n])
}

// Lstat returns a FileInfo describing the named file, not following a
// trailing symlink.
func (fsys *OSFS) Lstat(ctx context.Context, fname string) (fs.FileInfo, error) {
	started := time.Now()
	fi, err := os.Lstat(fname)
	fsys.OpsDone(err)
	if dur := time.Since(started); dur > 1*time.Minute {
		logSlow(ctx, fname, dur, err)
	}
	return fi, err
}

// Stat returns a FileInfo describing the named file, following symlinks.
func (fsys *OSFS) Stat(ctx context.Context, fname string) (fs.FileInfo, error) {
	started := time.Now()
	fi, err := os.Stat(fname)
	fsys.OpsDone(err)
	if dur := time.Since(started); dur > 1*time.Minute {
		logSlow(ctx, fname, dur, err)
	}
	return fi, err
}

// Readlink returns the destination of the named symbolic link.
func (fsys *OSFS) Readlink(ctx context.Context, name string) (string, error) {
	started := time.Now()
	target, err := os.Readlink(name)
	fsys.OpsDone(err)
	if dur := time.Since(started); dur > 1*time.Minute {
		logSlow(ctx, name, dur, err)
	}
	return target, err
}

// FileSource creates a new FileSource for name.
func (fsys *OSFS) FileSource(name string) FileSource {
	return FileSource{Fname: name, fs: fsys}
}

// FileSource is a readable, metered reference to a file on disk.
type FileSource struct {
	Fname string
	fs    *OSFS
}

// Open opens the named file for reading.
func (fsrc FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	r, err := os.Open(fsrc.Fname)
	return &file{ctx: ctx, file: r, started: time.Now(), fs: fsrc.fs}, err
}

func (fsrc FileSource) String() string {
	return fmt.Sprintf("file://%s", fsrc.Fname)
}

type file struct {
	ctx     context.Context
	file    *os.File
	started time.Time
	fs      *OSFS
	n       int
}

func (f *file) Read(buf []byte) (int, error) {
	n, err := f.file.Read(buf)
	f.n += n
	return n, err
}

func (f *file) Close() error {
	name := f.file.Name()
	err := f.file.Close()
	f.fs.ReadDone(f.n, err)
	if dur := time.Since(f.started); dur > 1*time.Minute {
		logSlow(f.ctx, name, dur, err)
	}
	return err
}
