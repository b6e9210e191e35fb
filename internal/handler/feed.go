package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sakif/docuflow/internal/changefeed"
)

// FeedHandler streams change-feed events to admin console clients over a
// websocket. Each frame is one event, {"table": "...", "kind": "..."}; the
// client reloads whatever the event touches. Events carry no record data,
// so the socket leaks nothing a reload would not also return.
type FeedHandler struct {
	feed     changefeed.Source
	tables   []string
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewFeedHandler(feed changefeed.Source, tables []string, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{
		feed:   feed,
		tables: tables,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

// HandleFeed upgrades the connection and relays events from every watched
// table until the client hangs up. Subscriptions are released on the way
// out, whichever side closes first.
//
// HTTP: GET /api/admin/feed
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("feed upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	subs := make([]*changefeed.Subscription, 0, len(h.tables))
	for _, table := range h.tables {
		sub, err := h.feed.Subscribe(table, changefeed.AllEvents)
		if err != nil {
			h.logger.Error("feed subscribe failed",
				slog.String("table", table),
				slog.String("error", err.Error()),
			)
			for _, s := range subs {
				h.feed.Unsubscribe(s)
			}
			return
		}
		subs = append(subs, sub)
	}
	defer func() {
		for _, s := range subs {
			h.feed.Unsubscribe(s)
		}
	}()

	// The read loop exists only to notice the client going away; inbound
	// frames are ignored.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	merged := make(chan changefeed.Event, 16)
	for _, sub := range subs {
		go func(events <-chan changefeed.Event) {
			for ev := range events {
				select {
				case merged <- ev:
				case <-done:
					return
				}
			}
		}(sub.Events())
	}

	h.logger.Info("feed client connected", slog.String("remote", r.RemoteAddr))

	for {
		select {
		case <-done:
			h.logger.Info("feed client disconnected", slog.String("remote", r.RemoteAddr))
			return
		case ev := <-merged:
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Warn("feed write failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}
