package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/ports"
)

// streamAPI is the slice of runtime.NakamaModule the bus needs.
type streamAPI interface {
	StreamSend(mode uint8, subject, subcontext, label, data string, presences []runtime.Presence, reliable bool) error
}

// StreamBus fans committed events out over Nakama streams. Each room has a
// broadcast stream plus one private stream per identity; clients are joined
// to both when they enter the room.
type StreamBus struct {
	nk     streamAPI
	logger runtime.Logger
}

func NewStreamBus(nk streamAPI, logger runtime.Logger) *StreamBus {
	return &StreamBus{nk: nk, logger: logger}
}

var _ ports.EventBusPort = (*StreamBus)(nil)

// busEnvelope is the client-visible wire shape of one event.
type busEnvelope struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

// RoomStreamLabel is the broadcast stream for a room.
func RoomStreamLabel(code string) string {
	return roomStreamPrefix + code
}

// PrivateStreamLabel is the per-identity stream carrying hidden
// information such as dealt hands.
func PrivateStreamLabel(code, identity string) string {
	return roomStreamPrefix + code + ":" + identity
}

// Publish sends every event to its stream. Events without recipients go to
// the room broadcast stream; the rest go to each recipient's private
// stream. Delivery failures are reported but never interrupt the batch.
func (b *StreamBus) Publish(ctx context.Context, code string, events []ports.Event) error {
	var firstErr error
	for _, ev := range events {
		data, err := json.Marshal(busEnvelope{Kind: string(ev.Kind), Payload: ev.Payload})
		if err != nil {
			b.logger.Error("marshal %s event for room %s: %v", ev.Kind, code, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("marshal %s event: %w", ev.Kind, err)
			}
			continue
		}
		labels := []string{RoomStreamLabel(code)}
		if len(ev.Recipients) > 0 {
			labels = labels[:0]
			for _, identity := range ev.Recipients {
				labels = append(labels, PrivateStreamLabel(code, identity))
			}
		}
		for _, label := range labels {
			if err := b.nk.StreamSend(streamModeGame, "", "", label, string(data), nil, true); err != nil {
				b.logger.Error("stream send %s to %s: %v", ev.Kind, label, err)
				if firstErr == nil {
					firstErr = fmt.Errorf("stream send %s: %w", ev.Kind, err)
				}
			}
		}
	}
	return firstErr
}
