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

package database

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// hub fans write notifications out to the observers of one wallet.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[chan struct{}]struct{})}
}

func (h *hub) subscribe(wallet string) (chan struct{}, func()) {
	signal := make(chan struct{}, 1)

	h.mu.Lock()
	if h.subs[wallet] == nil {
		h.subs[wallet] = make(map[chan struct{}]struct{})
	}
	h.subs[wallet][signal] = struct{}{}
	h.mu.Unlock()

	return signal, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[wallet], signal)
		if len(h.subs[wallet]) == 0 {
			delete(h.subs, wallet)
		}
	}
}

// notify never blocks. A pending signal already covers this write.
func (h *hub) notify(wallet string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for signal := range h.subs[wallet] {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
}

// observe emits the current snapshot, then a reloaded snapshot after every
// notified write. Writes that land while the consumer is busy coalesce into
// one reload. The channel closes when ctx is done.
func observe[T any](ctx context.Context, h *hub, wallet string, load func(context.Context) (T, error)) (<-chan T, error) {
	signal, unsubscribe := h.subscribe(wallet)

	snapshot, err := load(ctx)
	if err != nil {
		unsubscribe()
		return nil, err
	}

	out := make(chan T)
	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			select {
			case out <- snapshot:
			case <-ctx.Done():
				return
			}

			for {
				select {
				case <-signal:
				case <-ctx.Done():
					return
				}

				next, err := load(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					zap.L().Warn("Failed to reload observed snapshot", zap.String("wallet", wallet), zap.Error(err))
					continue
				}
				snapshot = next
				break
			}
		}
	}()
	return out, nil
}
