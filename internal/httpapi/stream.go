/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package httpapi

import (
	"context"
	"net/http"
	"time"

	"gro-garden-sync/internal/database"
	"gro-garden-sync/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	streamWriteWait    = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

// Observer streams storage snapshots for one wallet.
type Observer interface {
	ObservePlants(ctx context.Context, wallet string) (<-chan []models.Plant, error)
	ObserveStreak(ctx context.Context, wallet string) (<-chan *models.Streak, error)
	ObserveJournal(ctx context.Context, wallet string, limit int) (<-chan []models.JournalEntry, error)
}

var _ Observer = (*database.Service)(nil)

type streamMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// handleStream pushes plants, streak and journal snapshots over a websocket
// whenever the wallet's garden changes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	address, ok := addressVar(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Debug("Websocket upgrade failed", zap.String("wallet", address), zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A hijacked connection is only noticed as closed by reading from it.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	plants, err := s.observer.ObservePlants(ctx, address)
	if err != nil {
		closeStream(conn, address, err)
		return
	}
	streaks, err := s.observer.ObserveStreak(ctx, address)
	if err != nil {
		closeStream(conn, address, err)
		return
	}
	entries, err := s.observer.ObserveJournal(ctx, address, DefaultJournalLimit)
	if err != nil {
		closeStream(conn, address, err)
		return
	}

	zap.L().Debug("Garden stream opened", zap.String("wallet", address))
	defer zap.L().Debug("Garden stream closed", zap.String("wallet", address))

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		var msg streamMessage
		select {
		case <-ctx.Done():
			return
		case p, ok := <-plants:
			if !ok {
				return
			}
			msg = streamMessage{Type: "plants", Data: p}
		case st, ok := <-streaks:
			if !ok {
				return
			}
			msg = streamMessage{Type: "streak", Data: st}
		case j, ok := <-entries:
			if !ok {
				return
			}
			msg = streamMessage{Type: "journal", Data: j}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
			continue
		}

		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
			return
		}
		if err := conn.WriteJSON(msg); err != nil {
			zap.L().Debug("Garden stream write failed", zap.String("wallet", address), zap.Error(err))
			return
		}
	}
}

func closeStream(conn *websocket.Conn, address string, err error) {
	zap.L().Error("Failed to open garden stream", zap.String("wallet", address), zap.Error(err))
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "stream unavailable"),
		time.Now().Add(streamWriteWait))
}
