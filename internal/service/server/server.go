package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"quietdrop/internal/errs"
	"quietdrop/internal/model"
	"quietdrop/internal/protocol/envelope"
	"quietdrop/internal/service/gate"
	"quietdrop/internal/utils/log"
)

// defaultMaxConns applies when Options.MaxConns is unset.
const defaultMaxConns = 1024

var (
	ErrRateLimited = errors.New("rate limited")
	ErrBusy        = errors.New("connection limit reached")
)

type (
	// Handler is called once for every envelope that decrypts.
	Handler func(env *model.Envelope, plaintext string)

	Options struct {
		// IOTimeout bounds the gate check, read and write of one connection.
		IOTimeout time.Duration
		// MaxConns caps connections handled at once; Accept waits when full.
		MaxConns int64
	}

	Server struct {
		secretKey model.SecretKey
		gate      gate.Gate
		handler   Handler
		ioTimeout time.Duration
		sem       *semaphore.Weighted
		wg        sync.WaitGroup
	}
)

func NewServer(sk model.SecretKey, g gate.Gate, h Handler, opts Options) *Server {
	if opts.MaxConns <= 0 {
		opts.MaxConns = defaultMaxConns
	}
	return &Server{
		secretKey: sk,
		gate:      g,
		handler:   h,
		ioTimeout: opts.IOTimeout,
		sem:       semaphore.NewWeighted(opts.MaxConns),
	}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %v: %w", addr, err, errs.ErrTransport)
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is done, handling each in its
// own goroutine. It returns nil after ctx is cancelled and an error when
// the listener fails; in both cases in-flight connections are drained.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	log.Info("listening for envelopes", zap.String("addr", l.Addr().String()))
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer func() {
		stop()
		_ = l.Close()
		s.wg.Wait()
	}()

	for {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil
		}

		conn, err := l.Accept()
		if err != nil {
			s.sem.Release(1)
			if ctx.Err() != nil {
				return nil
			}
			log.Error("accept failed", zap.Error(err))
			return fmt.Errorf("accept: %v: %w", err, errs.ErrTransport)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.sem.Release(1)
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	if s.ioTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ioTimeout)
		defer cancel()
		_ = conn.SetDeadline(time.Now().Add(s.ioTimeout))
	}

	// The gate is consulted before a single payload byte is read.
	if err := s.admit(ctx, remote); err != nil {
		log.Warn("connection rejected", zap.String("peer", remote), zap.Error(err))
		return
	}

	env, err := envelope.Read(conn)
	if errors.Is(err, io.EOF) {
		log.Debug("connection closed by peer", zap.String("peer", remote))
		return
	}
	if err != nil {
		log.Error("read envelope failed",
			zap.String("peer", remote), zap.NamedError("kind", errs.Kind(err)), zap.Error(err))
		return
	}

	if err := s.deliver(env); err != nil {
		log.Error("decrypt envelope failed",
			zap.String("peer", remote), zap.NamedError("kind", errs.Kind(err)), zap.Error(err))
		return
	}

	if _, err := io.WriteString(conn, envelope.Ack); err != nil {
		log.Error("send acknowledgment failed", zap.String("peer", remote), zap.Error(err))
	}
}

// admit runs the gate for the host part of remote.
func (s *Server) admit(ctx context.Context, remote string) error {
	ok, err := s.gate.Check(ctx, peerHost(remote))
	if err != nil {
		return fmt.Errorf("gate: %w", err)
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}

func (s *Server) deliver(env *model.Envelope) error {
	plain, err := envelope.Open(env, s.secretKey)
	if err != nil {
		return err
	}

	log.Info("message received",
		zap.String("sender", env.Sender),
		zap.String("recipient", env.Recipient),
		zap.Stringer("type", env.MessageType),
		zap.Time("timestamp", env.Timestamp),
		zap.Int("ciphertext_bytes", len(env.Content)),
	)
	if s.handler != nil {
		s.handler(env, plain)
	}
	return nil
}

func peerHost(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
