// Package input feeds raw scanner input from a byte stream (stdin, a serial
// tty, a decoder pipe) into the scan controller.
package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// KeySink receives wedge characters one at a time.
type KeySink interface {
	Key(ctx context.Context, r rune) error
}

// DecodeSink receives whole camera decodes.
type DecodeSink interface {
	Decoded(ctx context.Context, code string, at time.Time) error
}

// Wedge forwards every rune of r to sink, terminators included, until EOF or
// ctx is done. A keyboard-wedge scanner on a tty looks exactly like this.
func Wedge(ctx context.Context, r io.Reader, sink KeySink) error {
	br := bufio.NewReader(r)
	return pump(ctx, func() error {
		ch, _, err := br.ReadRune()
		if err != nil {
			return err
		}
		if err := sink.Key(ctx, ch); err != nil {
			return fmt.Errorf("wedge key: %w", err)
		}
		return nil
	})
}

// Decoder forwards one decode per line of r. Blank lines are skipped; the
// decode time is the moment the line was read.
func Decoder(ctx context.Context, r io.Reader, sink DecodeSink) error {
	sc := bufio.NewScanner(r)
	return pump(ctx, func() error {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return err
			}
			return io.EOF
		}
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			return nil
		}
		if err := sink.Decoded(ctx, line, time.Now()); err != nil {
			return fmt.Errorf("decoder line: %w", err)
		}
		return nil
	})
}

// pump runs step until it fails. Reads block, so the loop runs on its own
// goroutine and ctx cancellation returns without waiting for it.
func pump(ctx context.Context, step func() error) error {
	done := make(chan error, 1)
	go func() {
		for {
			if err := step(); err != nil {
				done <- err
				return
			}
			if ctx.Err() != nil {
				done <- ctx.Err()
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-done:
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}
