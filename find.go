// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import (
	"bytes"
	"errors"
	"iter"
	"log/slog"
)

// Finder iterates over the records of a server table (e.g., "Tag",
// "Trend", "Alarm") matching a filter.
//
// Use it like a [bufio.Scanner]:
//
//	f, err := client.Find("Tag", "CLUSTER=Cluster1", "")
//	// handle err
//	defer f.Close()
//	for f.Next() {
//		name, _ := f.Object().Property("TAG")
//	}
//	if err := f.Err(); err != nil { ... }
//
// A Finder holds a lease on its [*Client] until [Finder.Close].
//
// A Finder is not safe for concurrent use.
type Finder struct {
	client  *Client
	closed  bool
	cluster []byte
	err     error
	filter  []byte
	handle  Handle
	object  Handle
	started bool
	table   []byte
	tname   string
}

// Find prepares a search over table with the given filter. An empty
// cluster searches the default cluster.
//
// The search starts on the first call to [Finder.Next].
func (c *Client) Find(table, filter, cluster string) (*Finder, error) {
	ctable, err := encodeParam("ctFindFirst", "table", table)
	if err != nil {
		return nil, err
	}
	cfilter, err := encodeParam("ctFindFirst", "filter", filter)
	if err != nil {
		return nil, err
	}
	var ccluster []byte
	if cluster != "" {
		if ccluster, err = encodeParam("ctFindFirstEx", "cluster", cluster); err != nil {
			return nil, err
		}
	}
	if _, err := c.acquire(); err != nil {
		return nil, err
	}
	return &Finder{client: c, cluster: ccluster, filter: cfilter, table: ctable, tname: table}, nil
}

// ensureStarted issues ctFindFirst unless already done.
func (f *Finder) ensureStarted() bool {
	if f.started {
		return f.handle != 0
	}
	f.started = true
	c := f.client
	var object Handle
	h, err := c.api.FindFirst(c.handle, f.table, f.filter, f.cluster, &object, 0)
	switch {
	case err == nil:
		f.handle, f.object = h, object
	case errors.Is(err, errNotFound):
		// no matching records
	default:
		f.err = newNativeError("ctFindFirst", err)
	}
	c.logger.Info(
		"findFirst",
		slog.Any("err", f.err),
		slog.String("errClass", c.errClassifier.Classify(f.err)),
		slog.String("table", f.tname),
		slog.Time("t", c.timeNow()),
	)
	return f.handle != 0
}

// Next advances to the next record, returning false at the end of the
// records or on error. The first call returns the first record.
func (f *Finder) Next() bool {
	if f.closed || f.err != nil {
		return false
	}
	if !f.started {
		return f.ensureStarted()
	}
	if f.handle == 0 {
		return false
	}
	var object Handle
	if err := f.client.api.FindNext(f.handle, &object); err != nil {
		f.object = 0
		return false
	}
	f.object = object
	return true
}

// Prev moves back to the previous record.
func (f *Finder) Prev() bool {
	if f.closed || f.err != nil || !f.ensureStarted() {
		return false
	}
	var object Handle
	if err := f.client.api.FindPrev(f.handle, &object); err != nil {
		return false
	}
	f.object = object
	return true
}

// Scroll moves to an arbitrary record, where mode is one of the
// FindScroll* constants and offset is used by the absolute and relative
// modes. It returns false when the record does not exist.
func (f *Finder) Scroll(mode uint32, offset int32) bool {
	if f.closed || f.err != nil || !f.ensureStarted() {
		return false
	}
	var object Handle
	if _, err := f.client.api.FindScroll(f.handle, mode, offset, &object); err != nil {
		return false
	}
	f.object = object
	return true
}

// NumRecords returns the number of records matching the search.
func (f *Finder) NumRecords() (int, error) {
	if f.closed {
		return 0, ErrFinderClosed
	}
	if !f.ensureStarted() {
		return 0, f.err
	}
	n, err := f.client.api.FindNumRecords(f.handle)
	if err != nil {
		return 0, newNativeError("ctFindNumRecords", err)
	}
	return int(n), nil
}

// Object returns the current record or nil when there is none.
func (f *Finder) Object() *FindObject {
	if f.object == 0 {
		return nil
	}
	return &FindObject{api: f.client.api, handle: f.object}
}

// Err returns the error that stopped the search, if any.
func (f *Finder) Err() error {
	return f.err
}

// Close ends the search and releases the lease on the client.
//
// Returns [ErrFinderClosed] when called more than once.
func (f *Finder) Close() error {
	if f.closed {
		return ErrFinderClosed
	}
	f.closed = true
	f.object = 0
	defer f.client.release()
	if f.handle != 0 {
		if err := f.client.api.FindClose(f.handle); err != nil {
			return newNativeError("ctFindClose", err)
		}
	}
	return nil
}

// All returns an iterator over the remaining records. The finder is
// closed when the iteration stops.
func (f *Finder) All() iter.Seq[*FindObject] {
	return func(yield func(*FindObject) bool) {
		defer func() { _ = f.Close() }()
		for f.Next() {
			if !yield(f.Object()) {
				return
			}
		}
	}
}

// FindObject is a record returned by a [*Finder].
//
// It is only valid until the finder moves or is closed.
type FindObject struct {
	api    NativeAPI
	handle Handle
}

// Handle returns the native object handle.
func (o *FindObject) Handle() Handle {
	return o.handle
}

// Property returns a field of the record as a string. Metadata is
// available through names such as "object.fields.count".
func (o *FindObject) Property(name string) (string, error) {
	cname, err := encodeParam("ctGetProperty", "name", name)
	if err != nil {
		return "", err
	}
	buf := make([]byte, PropertyNameLen)
	n, err := o.api.GetProperty(o.handle, cname, buf, DBTypeStr)
	if err != nil {
		return "", newNativeError("ctGetProperty", err)
	}
	region := buf[:min(int(n), len(buf))]
	if idx := bytes.IndexByte(region, 0); idx >= 0 {
		region = region[:idx]
	}
	return DecodeString(region), nil
}
