package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/errors"
)

// CallWithin bounds a single store round trip, such as a cache read or
// write, to limit. It returns when op returns or the limit passes, whichever
// is first; op keeps running in the background until it notices its context.
//
// A blown limit is reported as both apperrors.ErrTimeout and
// context.DeadlineExceeded, so a circuit breaker counts it as a failure and
// HTTP callers map it to 504. A limit of zero or less calls op inline.
func CallWithin(ctx context.Context, limit time.Duration, op string, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- fn(callCtx) }()

	select {
	case err := <-result:
		// An op that gives up because of callCtx is classified below.
		if err == nil || callCtx.Err() == nil {
			return err
		}
	case <-callCtx.Done():
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s abandoned by caller: %w", op, err)
	}
	return fmt.Errorf("%s took longer than %v: %w: %w", op, limit, apperrors.ErrTimeout, context.DeadlineExceeded)
}
