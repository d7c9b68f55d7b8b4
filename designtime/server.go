package designtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Server answers design-time requests read from a stream.
type Server struct {
	Session *Session

	// Watch starts watching the project manifest after a successful Initialize and
	// pushes a Configurations message for every change.
	Watch bool
}

// Serve reads messages from r and writes replies to w until r ends or ctx is
// canceled. Requests that fail are answered with an Error message; only stream
// failures end Serve with an error.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	var (
		wg        sync.WaitGroup
		stopWatch = func() {}
	)
	defer func() {
		cancel()
		wg.Wait()
	}()

	dec := NewDecoder(r)
	enc := NewEncoder(w)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		msg, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch msg.MessageType {
		case TypeInitialize:
			var init InitializeMessage
			if err := msg.DecodePayload(&init); err != nil {
				if err := replyError(enc, msg.ContextID, err); err != nil {
					return err
				}
				continue
			}
			out, err := s.Session.Initialize(ctx, init)
			if err != nil {
				if err := replyError(enc, msg.ContextID, err); err != nil {
					return err
				}
				continue
			}
			if err := enc.Encode(TypeConfigurations, msg.ContextID, out); err != nil {
				return err
			}

			if s.Watch {
				// A repointed session watches its new folder only.
				stopWatch()
				stopWatch = s.startWatch(ctx, &wg, enc, msg.ContextID)
			}

		case TypeRefreshDependencies:
			out, diffs, err := s.Session.Refresh(ctx)
			if err != nil {
				if err := replyError(enc, msg.ContextID, err); err != nil {
					return err
				}
				continue
			}
			if err := enc.Encode(TypeConfigurations, msg.ContextID, out); err != nil {
				return err
			}
			if err := enc.Encode(TypeDependencyDiff, msg.ContextID, diffs); err != nil {
				return err
			}

		default:
			err := fmt.Errorf("unknown message type %q", msg.MessageType)
			if err := replyError(enc, msg.ContextID, err); err != nil {
				return err
			}
		}
	}
}

// startWatch pushes updates for the session's current project folder until the
// returned func is called. The func waits for the watch to end.
func (s *Server) startWatch(ctx context.Context, wg *sync.WaitGroup, enc *Encoder, contextID int) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		err := s.Session.Watch(ctx, func(u Update) {
			if u.Err != nil {
				_ = replyError(enc, contextID, u.Err)
				return
			}
			_ = enc.Encode(TypeConfigurations, contextID, u.Configurations)
			_ = enc.Encode(TypeDependencyDiff, contextID, u.Diffs)
		})
		if err != nil {
			_ = replyError(enc, contextID, err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func replyError(enc *Encoder, contextID int, err error) error {
	return enc.Encode(TypeError, contextID, ErrorMessage{Message: err.Error()})
}
