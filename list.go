// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import (
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"
)

// List is a set of tags read together with a single request.
//
// A list holds a lease on its [*Client] until the native list is freed.
// Pending [List.ReadAsync] and [List.WriteAsync] operations hold a lease on
// the list, so [List.Close] defers ctListFree until their outcome is retrieved.
//
// A List is not safe for concurrent use, except that operations pending on
// it may complete on other goroutines.
type List struct {
	client *Client
	closed bool
	freed  bool
	handle Handle
	mu     sync.Mutex
	refs   int
	tags   map[string]Handle
}

// NewList creates a tag list. The mode argument combines the List* mode
// flags (e.g., [ListEvent]).
func (c *Client) NewList(mode uint32) (*List, error) {
	h, err := c.acquire()
	if err != nil {
		return nil, err
	}
	lh, err := c.api.ListNew(h, mode)
	if err != nil {
		c.release()
		return nil, newNativeError("ctListNew", err)
	}
	return &List{client: c, handle: lh, tags: map[string]Handle{}}, nil
}

// Handle returns the native list handle.
func (l *List) Handle() Handle {
	return l.handle
}

// Add adds tag to the list using the server defaults (engineering value,
// 500ms polling period). Adding a tag twice is a no-op.
func (l *List) Add(tag string) error {
	if l.closed {
		return ErrListClosed
	}
	if _, found := l.tags[tag]; found {
		return nil
	}
	ctag, err := encodeParam("ctListAdd", "tag", tag)
	if err != nil {
		return err
	}
	th, err := l.client.api.ListAdd(l.handle, ctag)
	if err != nil {
		return newNativeError("ctListAdd", err)
	}
	l.tags[tag] = th
	return nil
}

// AddEx is like [List.Add] with explicit options. When raw is true the
// list reads raw device values. The pollPeriod is truncated to milliseconds
// and clamped to [0, math.MaxInt32] ms (about 24 days). The deadband is the
// percentage change below which updates are ignored.
func (l *List) AddEx(tag string, raw bool, pollPeriod time.Duration, deadband float64) error {
	if l.closed {
		return ErrListClosed
	}
	if _, found := l.tags[tag]; found {
		return nil
	}
	ctag, err := encodeParam("ctListAddEx", "tag", tag)
	if err != nil {
		return err
	}
	th, err := l.client.api.ListAddEx(l.handle, ctag, raw, pollPeriodMS(pollPeriod), deadband)
	if err != nil {
		return newNativeError("ctListAddEx", err)
	}
	l.tags[tag] = th
	return nil
}

// pollPeriodMS converts d into the millisecond count ctListAddEx expects.
func pollPeriodMS(d time.Duration) int32 {
	return int32(min(max(d.Milliseconds(), 0), math.MaxInt32))
}

// Delete removes tag from the list.
func (l *List) Delete(tag string) error {
	th, err := l.lookup("ctListDelete", tag)
	if err != nil {
		return err
	}
	if err := l.client.api.ListDelete(th); err != nil {
		return newNativeError("ctListDelete", err)
	}
	delete(l.tags, tag)
	return nil
}

// Tags returns the sorted names of the tags in the list.
func (l *List) Tags() []string {
	names := make([]string, 0, len(l.tags))
	for name := range l.tags {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (l *List) lookup(op, tag string) (Handle, error) {
	if l.closed {
		return 0, ErrListClosed
	}
	th, found := l.tags[tag]
	if !found {
		return 0, &Error{Kind: KindTagNotFound, Op: op, Tag: tag}
	}
	return th, nil
}

// Read reads every tag of the list, blocking until the server replies.
// Use [List.Data] to get the values afterwards.
func (l *List) Read() error {
	if l.closed {
		return ErrListClosed
	}
	c := l.client
	t0 := c.timeNow()
	c.logger.Info("listReadStart", slog.Int("tags", len(l.tags)), slog.Time("t", t0))
	err := c.api.ListRead(l.handle, nil)
	if err != nil {
		err = newNativeError("ctListRead", err)
	}
	c.logger.Info(
		"listReadDone",
		slog.Any("err", err),
		slog.String("errClass", c.errClassifier.Classify(err)),
		slog.Int("tags", len(l.tags)),
		slog.Time("t0", t0),
		slog.Time("t", c.timeNow()),
	)
	return err
}

// ReadAsync initiates an overlapped read of every tag of the list using op.
func (l *List) ReadAsync(op *AsyncOperation) error {
	if l.closed {
		return ErrListClosed
	}
	return op.start(l.client, l, "ctListRead", func(h Handle, buf []byte, ov *Overlapped) error {
		return l.client.api.ListRead(l.handle, ov)
	})
}

// Data returns the value of tag obtained by the last completed read.
func (l *List) Data(tag string, mode uint32) (string, error) {
	th, err := l.lookup("ctListData", tag)
	if err != nil {
		return "", err
	}
	buf := make([]byte, l.client.bufferSize)
	if err := l.client.api.ListData(th, buf, mode); err != nil {
		return "", newNativeError("ctListData", err)
	}
	return decodeBuffer(buf, 0)
}

// Item returns an item of tag obtained by the last completed read, where
// item is one of the List* item constants (e.g., [ListTimestamp]).
func (l *List) Item(tag string, item uint32, mode uint32) (string, error) {
	th, err := l.lookup("ctListItem", tag)
	if err != nil {
		return "", err
	}
	buf := make([]byte, l.client.bufferSize)
	if err := l.client.api.ListItem(th, item, buf, mode); err != nil {
		return "", newNativeError("ctListItem", err)
	}
	return decodeBuffer(buf, 0)
}

// Write writes value to tag, blocking until the server replies.
func (l *List) Write(tag, value string) error {
	th, err := l.lookup("ctListWrite", tag)
	if err != nil {
		return err
	}
	cvalue, err := encodeParam("ctListWrite", "value", value)
	if err != nil {
		return err
	}
	c := l.client
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	t0 := c.timeNow()
	c.logStart("tagWriteStart", t0, slog.String("tag", tag))
	if err = c.api.ListWrite(th, cvalue, nil); err != nil {
		err = newNativeError("ctListWrite", err)
	}
	c.logDone("tagWriteDone", t0, err, slog.String("tag", tag))
	return err
}

// WriteAsync initiates an overlapped write of value to tag using op.
func (l *List) WriteAsync(tag, value string, op *AsyncOperation) error {
	th, err := l.lookup("ctListWrite", tag)
	if err != nil {
		return err
	}
	cvalue, err := encodeParam("ctListWrite", "value", value)
	if err != nil {
		return err
	}
	c := l.client
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return op.start(c, l, "ctListWrite", func(h Handle, buf []byte, ov *Overlapped) error {
		return c.api.ListWrite(th, cvalue, ov)
	})
}

// Close frees the list and releases its lease on the client.
//
// When overlapped operations are still pending on the list, ctListFree runs
// once the last of them completes and its failure, if any, is logged.
//
// Returns [ErrListClosed] when called more than once.
func (l *List) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrListClosed
	}
	l.closed = true
	shouldFree := l.refs == 0
	l.freed = shouldFree
	l.mu.Unlock()
	if !shouldFree {
		l.client.logger.Info("listFreeDeferred", slog.Int("pending", l.pending()), slog.Time("t", l.client.timeNow()))
		return nil
	}
	return l.free()
}

// acquire takes a lease on the list for a pending operation.
func (l *List) acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrListClosed
	}
	l.refs++
	return nil
}

// release returns a lease, freeing the list when it was closed and this
// was the last lease.
func (l *List) release() {
	l.mu.Lock()
	l.refs--
	shouldFree := l.closed && l.refs == 0 && !l.freed
	if shouldFree {
		l.freed = true
	}
	l.mu.Unlock()
	if shouldFree {
		if err := l.free(); err != nil {
			l.client.logger.Warn(
				"listFree",
				slog.Any("err", err),
				slog.String("errClass", l.client.errClassifier.Classify(err)),
			)
		}
	}
}

func (l *List) pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refs
}

func (l *List) free() error {
	defer l.client.release()
	if err := l.client.api.ListFree(l.handle); err != nil {
		return newNativeError("ctListFree", err)
	}
	return nil
}
