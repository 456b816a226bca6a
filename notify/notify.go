// Package notify carries one-way refresh triggers between the backend and
// open boards over Redis pub/sub. A trigger only says that a board is out
// of date; it never carries item data.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "board-updates"

const reconnectDelay = time.Second

var errMissingResource = errors.New("missing resource")

// Event announces that a board changed upstream.
type Event struct {
	Site     string `json:"site"`
	Resource string `json:"resource"`
}

// Matches reports whether the event concerns the board of site and
// resource. An event without a site addresses every site.
func (e Event) Matches(site, resource string) bool {
	if e.Resource != resource {
		return false
	}
	return e.Site == "" || e.Site == site
}

// Publisher announces board changes.
type Publisher struct {
	rc      *redis.Client
	channel string
}

func NewPublisher(rc *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{rc: rc, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if ev.Resource == "" {
		return errMissingResource
	}
	data, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rc.Publish(ctx, p.channel, data).Err()
}

// Subscribe listens on channel and calls handle for every well-formed
// event until ctx is cancelled. A dropped subscription is re-established
// after a short pause.
func Subscribe(ctx context.Context, logger *log.Logger, rc *redis.Client, channel string, handle func(Event)) {
	if channel == "" {
		channel = DefaultChannel
	}
	for {
		sub := rc.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var ev Event
				if err := sonic.UnmarshalString(msg.Payload, &ev); err != nil {
					logger.Errorf("unable to parse board update: %v", err)
					continue
				}
				if ev.Resource == "" {
					logger.WithField("payload", msg.Payload).Warn("board update without resource")
					continue
				}
				logger.WithFields(log.Fields{"site": ev.Site, "resource": ev.Resource}).Debug("board update received")
				handle(ev)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Error("pubsub channel closed, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}
