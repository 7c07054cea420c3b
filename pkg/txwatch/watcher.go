package txwatch

import (
	"bytes"
	"context"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/go-zeromq/zmq4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const hashTxTopic = "hashtx"

// Watcher dials the node's ZMQ hashtx feed. The node announces a
// transaction once, at mempool acceptance, and the feed does not replay
// for late subscribers, so callers must Subscribe before broadcasting
// and wait on the subscription afterwards.
type Watcher struct {
	host   string
	logger *zap.Logger
}

func New(host string, logger *zap.Logger) Watcher {
	if !strings.HasPrefix(host, "tcp://") {
		host = "tcp://" + host
	}

	return Watcher{host: host, logger: logger}
}

// Subscription is a live hashtx subscription. Close releases the socket
// and unblocks any pending wait.
type Subscription struct {
	sub    zmq4.Socket
	logger *zap.Logger
}

// Subscribe connects to the feed and registers for hashtx announcements.
func (w Watcher) Subscribe(ctx context.Context) (*Subscription, error) {
	sub := zmq4.NewSub(ctx)

	if err := sub.Dial(w.host); err != nil {
		sub.Close()
		return nil, errors.Wrap(err, "could not dial")
	}
	if err := sub.SetOption(zmq4.OptionSubscribe, hashTxTopic); err != nil {
		sub.Close()
		return nil, errors.Wrap(err, "could not subscribe")
	}

	w.logger.Info("subscribed to transaction announcements",
		zap.String("host", w.host))

	return &Subscription{sub: sub, logger: w.logger}, nil
}

func (s *Subscription) Close() error {
	return s.sub.Close()
}

// WaitForTx blocks until the node announces txid or ctx is done,
// draining announcements for other transactions along the way.
func (s *Subscription) WaitForTx(ctx context.Context, txid chainhash.Hash) error {
	found := make(chan struct{})
	failed := make(chan error, 1)
	go func() {
		for {
			msg, err := s.sub.Recv()
			if err != nil {
				failed <- errors.Wrap(err, "could not receive message")
				return
			}
			if matches(msg.Frames, txid) {
				close(found)
				return
			}
		}
	}()

	select {
	case <-found:
		s.logger.Info("transaction announced", zap.String("txid", txid.String()))
		return nil
	case err := <-failed:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// matches reports whether a hashtx message announces target. The second
// frame carries the 32-byte hash in internal (little endian) byte
// order, which is chainhash's native layout.
func matches(frames [][]byte, target chainhash.Hash) bool {
	if len(frames) < 2 {
		return false
	}
	if !bytes.Equal(frames[0], []byte(hashTxTopic)) {
		return false
	}
	if len(frames[1]) != chainhash.HashSize {
		return false
	}

	return bytes.Equal(frames[1], target[:])
}
