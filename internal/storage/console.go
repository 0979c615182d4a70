package storage

import (
	"context"
	"fmt"

	"github.com/waltmon/walt/internal/result"
)

// ConsoleSink is a trivial Sink that prints each Result instead of
// persisting it, mirroring the original's ConsoleResultWriter. Useful for
// local runs without a database.
type ConsoleSink struct{}

func (ConsoleSink) Connect(ctx context.Context) error { return nil }

func (ConsoleSink) Save(ctx context.Context, r result.Result) {
	fmt.Printf("Got a result: %+v\n", r)
}

func (ConsoleSink) Disconnect(ctx context.Context) {}
