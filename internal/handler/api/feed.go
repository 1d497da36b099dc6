package api

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	applogger "PerpDesk/pkg/logger"
)

const (
	feedWriteWait = 10 * time.Second
	feedPongWait  = 60 * time.Second
)

// Feed upgrades to a websocket and pushes every signal appended after the
// connection opened, one JSON object per message.
func (h *Handler) Feed(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		h.l.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx := c.Request().Context()
	remote := c.RealIP()
	h.l.Info("feed client connected", applogger.String("remote", remote))

	// reader: handles pongs and notices the client going away
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	cursor := h.now()
	ticker := time.NewTicker(h.feedTick)
	defer ticker.Stop()
	pings := time.NewTicker(feedPongWait / 2)
	defer pings.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			h.l.Info("feed client disconnected", applogger.String("remote", remote))
			return nil
		case <-pings.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return nil
			}
		case <-ticker.C:
			sigs, err := h.signals.Since(ctx, cursor)
			if err != nil {
				h.l.Warn("feed poll failed", applogger.Error(err))
				continue
			}
			from := cursor
			for _, s := range sigs {
				// Since is inclusive
				if !s.Timestamp.After(from) {
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
				if err := conn.WriteJSON(s); err != nil {
					h.l.Warn("feed write failed", applogger.Error(err))
					return nil
				}
				if s.Timestamp.After(cursor) {
					cursor = s.Timestamp
				}
			}
		}
	}
}
