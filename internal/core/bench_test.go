package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/vovakirdan/messenger-server/internal/store"
)

func benchmarkChannelBroadcast(b *testing.B, subscribers int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	subs := make([]*Subscriber, 0, subscribers)
	for i := range subscribers {
		s := NewSubscriber(fmt.Sprintf("s%d", i), "user", "bench", 8)
		hub.Subscribe(s)
		subs = append(subs, s)
	}

	// Drain events for all but the first subscriber to avoid backpressure.
	target := subs[0]
	for _, s := range subs[1:] {
		go func(sub *Subscriber) {
			for range sub.Events {
			}
		}(s)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		hub.Publish(&Event{
			Kind:    EventMessage,
			Channel: "bench",
			Message: store.Message{User: "sender", Text: "payload"},
		})
		<-target.Events
	}
}

func BenchmarkChannelBroadcast_10(b *testing.B)  { benchmarkChannelBroadcast(b, 10) }
func BenchmarkChannelBroadcast_100(b *testing.B) { benchmarkChannelBroadcast(b, 100) }
func BenchmarkChannelBroadcast_500(b *testing.B) { benchmarkChannelBroadcast(b, 500) }
