package transport

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis carries packets over a pair of pub/sub channels, one per
// direction, so a single server can feed any number of render nodes.
type Redis struct {
	rdb    *redis.Client
	pubsub *redis.PubSub
	out    string
	log    *slog.Logger

	inbox  chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// Channel names for a prefix.
func DownChannel(prefix string) string { return prefix + ":down" }
func UpChannel(prefix string) string   { return prefix + ":up" }

// NewRedis publishes on out and delivers everything published on in.
func NewRedis(ctx context.Context, rdb *redis.Client, in, out string, log *slog.Logger) (*Redis, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	pubsub := rdb.Subscribe(ctx, in)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Redis{
		rdb:    rdb,
		pubsub: pubsub,
		out:    out,
		log:    log,
		inbox:  make(chan []byte, DefaultBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
	go r.relay()
	return r, nil
}

func (r *Redis) relay() {
	for msg := range r.pubsub.Channel() {
		select {
		case r.inbox <- []byte(msg.Payload):
		case <-r.ctx.Done():
			return
		default:
			r.log.Warn("inbox full, dropping packet", "channel", msg.Channel)
		}
	}
}

func (r *Redis) Send(packet []byte) error {
	if r.ctx.Err() != nil {
		return ErrClosed
	}
	return r.rdb.Publish(r.ctx, r.out, packet).Err()
}

func (r *Redis) Inbox() <-chan []byte { return r.inbox }

func (r *Redis) Close() error {
	var err error
	r.once.Do(func() {
		r.cancel()
		err = r.pubsub.Close()
	})
	return err
}
