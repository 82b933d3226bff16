// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Client is an open CtAPI session.
//
// Lists, finders and pending [*AsyncOperation] values hold a lease on the
// client. [Client.Close] marks the client as closed right away, but the
// native session is closed only when the last lease is released.
//
// Methods are safe for concurrent use. Write-style calls are serialized.
type Client struct {
	api           NativeAPI
	bufferSize    int
	closed        bool
	errClassifier ErrClassifier
	extended      bool
	handle        Handle
	logger        SLogger
	mu            sync.Mutex
	nativeClosed  bool
	refs          int
	timeNow       func() time.Time
	writeMu       sync.Mutex
}

// Open opens a CtAPI session using ctOpen.
//
// The cfg argument contains the common configuration for ctapi operations.
//
// The logger argument is the [SLogger] to use for structured logging.
//
// This call blocks until the server accepts or refuses the session. Use
// [*OpenFunc] to bound it with a context. A refused session yields a
// [KindConnectionFailed] error wrapping the native error.
func Open(cfg *Config, cr Credentials, logger SLogger) (*Client, error) {
	computer, user, password, err := cr.encode("ctOpen")
	if err != nil {
		return nil, err
	}
	c := newClient(cfg, logger)
	t0 := c.timeNow()
	c.logOpenStart(cr, t0)
	h, err := c.api.Open(computer, user, password, cr.Mode)
	if err != nil {
		err = newConnectionError("ctOpen", err)
		c.logOpenDone(cr, t0, err)
		return nil, err
	}
	c.handle = h
	c.logOpenDone(cr, t0, nil)
	return c, nil
}

// OpenEx is like [Open] but first creates an unconnected client with
// ctClientCreate and then opens the session with ctOpenEx. Closing the
// returned client also destroys the native client.
func OpenEx(cfg *Config, cr Credentials, logger SLogger) (*Client, error) {
	computer, user, password, err := cr.encode("ctOpenEx")
	if err != nil {
		return nil, err
	}
	c := newClient(cfg, logger)
	t0 := c.timeNow()
	c.logOpenStart(cr, t0)
	h, err := c.api.ClientCreate()
	if err != nil {
		err = newNativeError("ctClientCreate", err)
		c.logOpenDone(cr, t0, err)
		return nil, err
	}
	if err := c.api.OpenEx(computer, user, password, cr.Mode, h); err != nil {
		err = newConnectionError("ctOpenEx", err)
		if derr := c.api.ClientDestroy(h); derr != nil {
			c.logger.Warn("clientDestroy", slog.Any("err", derr), slog.String("errClass", c.errClassifier.Classify(derr)))
		}
		c.logOpenDone(cr, t0, err)
		return nil, err
	}
	c.handle = h
	c.extended = true
	c.logOpenDone(cr, t0, nil)
	return c, nil
}

func newClient(cfg *Config, logger SLogger) *Client {
	return &Client{
		api:           cfg.API,
		bufferSize:    cfg.BufferSize,
		errClassifier: cfg.ErrClassifier,
		logger:        logger,
		timeNow:       cfg.TimeNow,
	}
}

// newConnectionError wraps the native error of a refused session.
func newConnectionError(op string, err error) error {
	cause := newNativeError(op, err)
	code, _ := errnoOf(cause)
	return &Error{Kind: KindConnectionFailed, Op: op, Code: code, Cause: cause}
}

// Handle returns the native session handle.
func (c *Client) Handle() Handle {
	return c.handle
}

// acquire takes a lease on the client and returns the native handle.
func (c *Client) acquire() (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClientClosed
	}
	c.refs++
	return c.handle, nil
}

// release returns a lease, closing the native session when the client
// was closed and this was the last lease.
func (c *Client) release() {
	c.mu.Lock()
	c.refs--
	shouldClose := c.closed && c.refs == 0 && !c.nativeClosed
	if shouldClose {
		c.nativeClosed = true
	}
	c.mu.Unlock()
	if shouldClose {
		_ = c.closeNative()
	}
}

// Close closes the session.
//
// When lists, finders or pending operations still hold a lease, the native
// session is closed when the last of them releases it. Every later call,
// including Close itself, fails with [ErrClientClosed].
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	c.closed = true
	shouldClose := c.refs == 0
	if shouldClose {
		c.nativeClosed = true
	}
	c.mu.Unlock()
	if !shouldClose {
		c.logger.Info("closeDeferred", slog.Time("t", c.timeNow()))
		return nil
	}
	return c.closeNative()
}

func (c *Client) closeNative() (err error) {
	t0 := c.timeNow()
	c.logger.Info("closeStart", slog.Bool("extended", c.extended), slog.Time("t", t0))
	if c.extended {
		err = c.api.CloseEx(c.handle, true)
	} else {
		err = c.api.Close(c.handle)
	}
	if err != nil {
		err = newNativeError("ctClose", err)
	}
	c.logger.Info(
		"closeDone",
		slog.Any("err", err),
		slog.String("errClass", c.errClassifier.Classify(err)),
		slog.Bool("extended", c.extended),
		slog.Time("t0", t0),
		slog.Time("t", c.timeNow()),
	)
	return
}

// decodeResponse decodes the result of a synchronous read, treating an
// empty response as a failure.
func decodeResponse(op string, buf []byte) (string, error) {
	text, err := decodeBuffer(buf, 0)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", &Error{Kind: KindOther, Op: op, Detail: "empty response"}
	}
	return text, nil
}

// Cicode executes a Cicode command and returns its result.
//
// The window argument selects the Cicode window (0 for the default) and
// mode combines the Fmt* flags. See [Client.CicodeAsync] for the
// overlapped variant.
func (c *Client) Cicode(cmd string, window, mode uint32) (string, error) {
	ccmd, err := encodeParam("ctCicode", "cmd", cmd)
	if err != nil {
		return "", err
	}
	h, err := c.acquire()
	if err != nil {
		return "", err
	}
	defer c.release()

	t0 := c.timeNow()
	c.logStart("cicodeStart", t0, slog.String("cmd", cmd))
	buf := make([]byte, c.bufferSize)
	var text string
	if err = c.api.Cicode(h, ccmd, window, mode, buf, nil); err != nil {
		err = newNativeError("ctCicode", err)
	} else {
		text, err = decodeResponse("ctCicode", buf)
	}
	c.logDone("cicodeDone", t0, err, slog.String("cmd", cmd))
	return text, err
}

// CicodeAsync initiates an overlapped Cicode command using op.
//
// On success op is pending and the result must be retrieved with
// [AsyncOperation.Wait] or [AsyncOperation.Poll].
func (c *Client) CicodeAsync(cmd string, window, mode uint32, op *AsyncOperation) error {
	ccmd, err := encodeParam("ctCicode", "cmd", cmd)
	if err != nil {
		return err
	}
	return op.start(c, nil, "ctCicode", func(h Handle, buf []byte, ov *Overlapped) error {
		return c.api.Cicode(h, ccmd, window, mode, buf, ov)
	})
}

// TagRead reads the value of tag as a string, scaled and formatted by the server.
func (c *Client) TagRead(tag string) (string, error) {
	ctag, err := encodeParam("ctTagRead", "tag", tag)
	if err != nil {
		return "", err
	}
	h, err := c.acquire()
	if err != nil {
		return "", err
	}
	defer c.release()

	t0 := c.timeNow()
	c.logStart("tagReadStart", t0, slog.String("tag", tag))
	buf := make([]byte, c.bufferSize)
	var text string
	if err = c.api.TagRead(h, ctag, buf); err != nil {
		err = newNativeError("ctTagRead", err)
	} else {
		text, err = decodeResponse("ctTagRead", buf)
	}
	c.logDone("tagReadDone", t0, err, slog.String("tag", tag))
	return text, err
}

// TagReadEx is like [Client.TagRead] but also returns the quality and
// timestamp items of the tag.
func (c *Client) TagReadEx(tag string) (string, TagValueItems, error) {
	ctag, err := encodeParam("ctTagReadEx", "tag", tag)
	if err != nil {
		return "", TagValueItems{}, err
	}
	h, err := c.acquire()
	if err != nil {
		return "", TagValueItems{}, err
	}
	defer c.release()

	t0 := c.timeNow()
	c.logStart("tagReadStart", t0, slog.String("tag", tag))
	buf := make([]byte, c.bufferSize)
	items := newTagValueItemsBuffer()
	var text string
	if err = c.api.TagReadEx(h, ctag, buf, items); err != nil {
		err = newNativeError("ctTagReadEx", err)
	} else {
		text, err = decodeResponse("ctTagReadEx", buf)
	}
	c.logDone("tagReadDone", t0, err, slog.String("tag", tag))
	if err != nil {
		return "", TagValueItems{}, err
	}
	return text, decodeTagValueItems(items), nil
}

// TagWrite writes value to tag. The server converts and scales the value.
func (c *Client) TagWrite(tag, value string) error {
	ctag, err := encodeParam("ctTagWrite", "tag", tag)
	if err != nil {
		return err
	}
	cvalue, err := encodeParam("ctTagWrite", "value", value)
	if err != nil {
		return err
	}
	h, err := c.acquire()
	if err != nil {
		return err
	}
	defer c.release()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	t0 := c.timeNow()
	c.logStart("tagWriteStart", t0, slog.String("tag", tag))
	if err = c.api.TagWrite(h, ctag, cvalue); err != nil {
		err = newNativeError("ctTagWrite", err)
	}
	c.logDone("tagWriteDone", t0, err, slog.String("tag", tag))
	return err
}

// TagWriteAsync initiates an overlapped write of value to tag using op.
func (c *Client) TagWriteAsync(tag, value string, op *AsyncOperation) error {
	ctag, err := encodeParam("ctTagWriteEx", "tag", tag)
	if err != nil {
		return err
	}
	cvalue, err := encodeParam("ctTagWriteEx", "value", value)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return op.start(c, nil, "ctTagWriteEx", func(h Handle, buf []byte, ov *Overlapped) error {
		return c.api.TagWriteEx(h, ctag, cvalue, ov)
	})
}

// TagGetProperty reads a property of tag (e.g., "Type", "EngUnits").
func (c *Client) TagGetProperty(tag, property string, dbType DBType) (string, error) {
	ctag, err := encodeParam("ctTagGetProperty", "tag", tag)
	if err != nil {
		return "", err
	}
	cprop, err := encodeParam("ctTagGetProperty", "property", property)
	if err != nil {
		return "", err
	}
	h, err := c.acquire()
	if err != nil {
		return "", err
	}
	defer c.release()

	buf := make([]byte, PropertyNameLen)
	if err := c.api.TagGetProperty(h, ctag, cprop, buf, dbType); err != nil {
		return "", newNativeError("ctTagGetProperty", err)
	}
	return decodeBuffer(buf, 0)
}

// EngToRaw converts an engineering value into the raw scale of an I/O device.
//
// Tag functions already scale values, so this is only needed when talking
// to a device directly.
func (c *Client) EngToRaw(value float64, scale Scale, mode uint32) (float64, error) {
	out, err := c.api.EngToRaw(value, &scale, mode)
	if err != nil {
		return 0, newNativeError("ctEngToRaw", err)
	}
	return out, nil
}

// RawToEng converts a raw I/O device value into engineering units.
func (c *Client) RawToEng(value float64, scale Scale, mode uint32) (float64, error) {
	out, err := c.api.RawToEng(value, &scale, mode)
	if err != nil {
		return 0, newNativeError("ctRawToEng", err)
	}
	return out, nil
}

func (c *Client) logOpenStart(cr Credentials, t0 time.Time) {
	c.logger.Info(
		"openStart",
		slog.String("computer", cr.Computer),
		slog.Uint64("mode", uint64(cr.Mode)),
		slog.String("user", cr.User),
		slog.Time("t", t0),
	)
}

func (c *Client) logOpenDone(cr Credentials, t0 time.Time, err error) {
	c.logger.Info(
		"openDone",
		slog.String("computer", cr.Computer),
		slog.Any("err", err),
		slog.String("errClass", c.errClassifier.Classify(err)),
		slog.Uint64("mode", uint64(cr.Mode)),
		slog.String("user", cr.User),
		slog.Time("t0", t0),
		slog.Time("t", c.timeNow()),
	)
}

func (c *Client) logStart(msg string, t0 time.Time, attr slog.Attr) {
	c.logger.Info(msg, attr, slog.Time("t", t0))
}

func (c *Client) logDone(msg string, t0 time.Time, err error, attr slog.Attr) {
	c.logger.Info(
		msg,
		attr,
		slog.Any("err", err),
		slog.String("errClass", c.errClassifier.Classify(err)),
		slog.Time("t0", t0),
		slog.Time("t", c.timeNow()),
	)
}

// NewOpenFunc returns a new [*OpenFunc].
//
// The cfg argument contains the common configuration for ctapi operations.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewOpenFunc(cfg *Config, logger SLogger) *OpenFunc {
	return &OpenFunc{Config: cfg, Logger: logger}
}

// OpenFunc opens a [*Client] from [Credentials] honouring the context.
//
// Since ctOpen has no timeout parameter, it runs in a background goroutine.
// When the context is done first we return a [KindTimeout] error and the
// background goroutine closes the session as soon as ctOpen returns.
//
// Returns either a valid [*Client] or an error, never both.
type OpenFunc struct {
	// Config is the configuration used to open the client.
	//
	// Set by [NewOpenFunc] to the user-provided value.
	Config *Config

	// Extended selects [OpenEx] instead of [Open].
	Extended bool

	// Logger is the [SLogger] to use.
	//
	// Set by [NewOpenFunc] to the user-provided logger.
	Logger SLogger
}

var _ Func[Credentials, *Client] = &OpenFunc{}

// Call implements [Func].
func (op *OpenFunc) Call(ctx context.Context, cr Credentials) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, newTimeoutError("ctOpen", err)
	}
	type result struct {
		client *Client
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		open := Open
		if op.Extended {
			open = OpenEx
		}
		c, err := open(op.Config, cr, op.Logger)
		ch <- result{c, err}
	}()
	select {
	case r := <-ch:
		return r.client, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.client != nil {
				_ = r.client.Close()
			}
		}()
		return nil, newTimeoutError("ctOpen", ctx.Err())
	}
}
