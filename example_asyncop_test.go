// SPDX-License-Identifier: GPL-3.0-or-later

package ctapi_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/bassosimone/ctapi"
	"github.com/bassosimone/runtimex"
)

// This example shows how to drive an overlapped operation by hand,
// cancelling it when the user presses Ctrl-C.
//
// It requires CtApi.dll and a local server, so it is not run.
func ExampleAsyncOperation() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := ctapi.NewConfig()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	client := runtimex.PanicOnError1(ctapi.Open(cfg, ctapi.Credentials{}, logger))
	defer client.Close()

	op := runtimex.PanicOnError1(ctapi.NewAsyncOperation(cfg, 0, logger))
	defer op.Close()

	// The same operation is reused for several commands.
	for _, cmd := range []string{`Sleep(5)`, `Version(0)`} {
		runtimex.Assert(op.Reset() == nil)
		runtimex.Assert(client.CicodeAsync(cmd, 0, 0, op) == nil)

		unwatch := op.WatchContext(ctx)
		result, err := op.Wait()
		unwatch()

		if ctapi.IsCancelled(err) {
			fmt.Println("interrupted")
			return
		}
		runtimex.Assert(err == nil)
		fmt.Println(result)
	}
}

// This example shows how to poll a tag list read without blocking.
//
// It requires CtApi.dll and a local server, so it is not run.
func ExampleList() {
	cfg := ctapi.NewConfig()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	client := runtimex.PanicOnError1(ctapi.Open(cfg, ctapi.Credentials{}, logger))
	defer client.Close()

	list := runtimex.PanicOnError1(client.NewList(0))
	defer list.Close()
	runtimex.Assert(list.Add("Pump1_Speed") == nil)
	runtimex.Assert(list.Add("Pump1_Running") == nil)

	readOp := ctapi.NewListReadFunc(cfg, logger)
	runtimex.PanicOnError1(readOp.Call(context.Background(), list))

	for _, tag := range list.Tags() {
		fmt.Println(tag, runtimex.PanicOnError1(list.Data(tag, 0)))
	}
}

// This example shows how to enumerate the alarms configured in the project.
//
// It requires CtApi.dll and a local server, so it is not run.
func ExampleFinder() {
	cfg := ctapi.NewConfig()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	client := runtimex.PanicOnError1(ctapi.Open(cfg, ctapi.Credentials{}, logger))
	defer client.Close()

	finder := runtimex.PanicOnError1(client.Find("Alarm", "", ""))
	for object := range finder.All() {
		fmt.Println(runtimex.PanicOnError1(object.Property("TAG")))
	}
	runtimex.Assert(finder.Err() == nil)
}
