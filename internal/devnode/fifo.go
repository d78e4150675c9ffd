// Package devnode exposes driver sessions as named pipes, the user-space
// stand-in for character device nodes.
package devnode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"greenhouse-service/internal/logger"
	"greenhouse-service/internal/types"
)

const (
	nodeMode     = 0660
	pollInterval = 100 * time.Millisecond
	maxRecord    = 64

	// Longest line a sink accepts as one request
	maxLine = 4096
)

// Dir manages the nodes under one directory.
type Dir struct {
	logger *logger.Logger
	path   string
	poll   time.Duration
}

func NewDir(path string, l *logger.Logger) *Dir {
	return &Dir{
		logger: l,
		path:   path,
		poll:   pollInterval,
	}
}

func (d *Dir) Path(name string) string {
	return filepath.Join(d.path, name)
}

// Register creates the FIFO for name. A FIFO left behind by an earlier run
// is reused; any other existing file is an error.
func (d *Dir) Register(name string) error {
	if err := os.MkdirAll(d.path, 0755); err != nil {
		return fmt.Errorf("%w: %s: %w", types.ErrRegistration, d.path, err)
	}

	p := d.Path(name)
	if err := unix.Mkfifo(p, nodeMode); err != nil {
		if !errors.Is(err, unix.EEXIST) || !isFifo(p) {
			return fmt.Errorf("%w: %s: %w", types.ErrRegistration, p, err)
		}
		d.logger.Warnf("Reusing existing node %s", p)
	}
	// Mkfifo is subject to the umask.
	if err := os.Chmod(p, nodeMode); err != nil {
		os.Remove(p)
		return fmt.Errorf("%w: %s: %w", types.ErrRegistration, p, err)
	}

	d.logger.Infof("Registered node %s", p)
	return nil
}

func (d *Dir) Unregister(name string) error {
	p := d.Path(name)
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove node %s: %w", p, err)
	}
	d.logger.Infof("Unregistered node %s", p)
	return nil
}

func isFifo(p string) bool {
	fi, err := os.Lstat(p)
	return err == nil && fi.Mode()&os.ModeNamedPipe != 0
}

// ServeSource answers every reader of the node with one record: a session is
// opened, read once, written to the reader and closed. It returns when ctx
// is done.
func (d *Dir) ServeSource(ctx context.Context, name string, open func() (io.ReadCloser, error)) error {
	p := d.Path(name)
	d.logger.Infof("Serving reads on %s", p)

	for {
		f, err := d.waitReader(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to open %s: %w", p, err)
		}

		d.serveRecord(f, open)
		f.Close()

		// Give the reader time to see EOF before the node has a writer again.
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d.poll):
		}
	}
}

// waitReader opens p for writing once a reader is present. Non-blocking
// opens fail with ENXIO until then.
func (d *Dir) waitReader(ctx context.Context, p string) (*os.File, error) {
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		fd, err := unix.Open(p, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err == nil {
			return os.NewFile(uintptr(fd), p), nil
		}
		if !errors.Is(err, unix.ENXIO) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Dir) serveRecord(w io.Writer, open func() (io.ReadCloser, error)) {
	sess, err := open()
	if err != nil {
		d.logger.Warnf("Failed to open session: %v", err)
		return
	}
	defer sess.Close()

	buf := make([]byte, maxRecord)
	n, err := sess.Read(buf)
	if err != nil {
		// A record that comes with an error, e.g. after a bus failure, is not
		// a reading. The reader gets EOF instead.
		d.logger.Warnf("Read failed: %v", err)
		return
	}
	if n == 0 {
		return
	}
	if _, err := w.Write(buf[:n]); err != nil {
		d.logger.Debugf("Reader went away: %v", err)
	}
}

// ServeSink delivers every line written to the node as one session write,
// without the line ending. A line longer than maxLine is dropped as one
// rejected request. It returns when ctx is done.
func (d *Dir) ServeSink(ctx context.Context, name string, open func() (io.WriteCloser, error)) error {
	p := d.Path(name)

	// Holding the FIFO read-write keeps it open between writers, so reads
	// block instead of returning EOF.
	f, err := os.OpenFile(p, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", p, err)
	}
	defer f.Close()
	stop := context.AfterFunc(ctx, func() { f.Close() })
	defer stop()

	d.logger.Infof("Serving writes on %s", p)
	r := bufio.NewReaderSize(f, maxLine)
	for {
		line, err := r.ReadSlice('\n')
		switch {
		case err == nil:
			line = bytes.TrimSuffix(line[:len(line)-1], []byte("\r"))
			d.deliver(line, open)
			continue
		case errors.Is(err, bufio.ErrBufferFull):
			d.logger.Warnf("Dropping line longer than %d bytes on %s", maxLine, p)
			err = skipLine(r)
			if err == nil {
				continue
			}
		}

		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", p, err)
	}
}

// skipLine discards input up to and including the next newline.
func skipLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

func (d *Dir) deliver(line []byte, open func() (io.WriteCloser, error)) {
	sess, err := open()
	if err != nil {
		d.logger.Warnf("Failed to open session: %v", err)
		return
	}
	defer sess.Close()

	if _, err := sess.Write(line); err != nil {
		d.logger.Warnf("Write %q failed: %v", line, err)
	}
}
