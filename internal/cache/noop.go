package cache

import (
	"context"
	"time"
)

// Noop never stores anything. Every lookup is a miss.
type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) Name() string                                       { return "none" }
func (Noop) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (Noop) Set(context.Context, string, []byte, time.Duration) {}
func (Noop) Delete(context.Context, ...string)                  {}
func (Noop) DeletePrefix(context.Context, string)               {}
