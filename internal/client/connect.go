package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/grandcat/zeroconf"
	"github.com/ilnaes/downstream/internal/auth"
	"github.com/ilnaes/downstream/internal/common"
	"github.com/ilnaes/downstream/internal/config"
	"github.com/ilnaes/downstream/internal/transport"
)

var ErrNoServer = errors.New("no downstream server found")

// Connect dials the server named in cfg, or the first one announced over
// mDNS, retrying with exponential backoff until ctx ends.
func Connect(ctx context.Context, cfg config.ClientConfig, signer *auth.Signer, uid string, log *slog.Logger) (*transport.Conn, error) {
	if log == nil {
		log = slog.Default()
	}

	var conn *transport.Conn
	url := cfg.ServerURL
	op := func() error {
		if url == "" {
			found, err := Discover(ctx, cfg.DiscoveryTimeout)
			if err != nil {
				return err
			}
			url = found
		}

		token, err := signer.Sign(uid, auth.RoleRender)
		if err != nil {
			return backoff.Permanent(err)
		}
		conn, err = transport.Dial(ctx, url, token, log)
		if err != nil && cfg.ServerURL == "" {
			// the announced server may be gone, look again
			url = ""
		}
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = 0
	notify := func(err error, wait time.Duration) {
		log.Warn("connect failed", "url", url, "retry_in", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(eb, ctx), notify); err != nil {
		return nil, err
	}
	log.Info("connected", "url", url)
	return conn, nil
}

// Discover browses mDNS for a downstream server and returns its websocket
// url.
func Discover(ctx context.Context, timeout time.Duration) (string, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, common.ServiceType, "local.", entries); err != nil {
		return "", err
	}

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return "", ErrNoServer
			}
			if url := entryURL(entry); url != "" {
				return url, nil
			}
		case <-ctx.Done():
			return "", ErrNoServer
		}
	}
}

func entryURL(e *zeroconf.ServiceEntry) string {
	switch {
	case len(e.AddrIPv4) > 0:
		return fmt.Sprintf("ws://%s:%d%s", e.AddrIPv4[0], e.Port, common.WebsocketPath)
	case len(e.AddrIPv6) > 0:
		return fmt.Sprintf("ws://[%s]:%d%s", e.AddrIPv6[0], e.Port, common.WebsocketPath)
	}
	return ""
}
