package sse

import (
	"strings"
	"testing"
)

func TestBroker(t *testing.T) {
	t.Run("PublishReachesSubscribers", func(t *testing.T) {
		b := NewBroker()
		defer b.Shutdown()

		client, err := b.Subscribe(TopicIndex)
		if err != nil {
			t.Fatal(err)
		}

		b.Publish(TopicIndex, "index_published", `{"generation":1,"size":5}`)

		msg := <-client.Events
		if !strings.Contains(msg, "event: index_published") {
			t.Errorf("unexpected message: %q", msg)
		}
		if !strings.Contains(msg, `"size":5`) {
			t.Errorf("payload missing: %q", msg)
		}
	})

	t.Run("OtherTopicsNotNotified", func(t *testing.T) {
		b := NewBroker()
		defer b.Shutdown()

		client, err := b.Subscribe("other")
		if err != nil {
			t.Fatal(err)
		}

		b.Publish(TopicIndex, "index_published", "{}")

		select {
		case msg := <-client.Events:
			t.Errorf("unexpected delivery: %q", msg)
		default:
		}
	})

	t.Run("UnsubscribeClosesChannel", func(t *testing.T) {
		b := NewBroker()
		defer b.Shutdown()

		client, err := b.Subscribe(TopicIndex)
		if err != nil {
			t.Fatal(err)
		}
		b.Unsubscribe(client, TopicIndex)

		if _, ok := <-client.Events; ok {
			t.Error("expected closed channel")
		}
	})

	t.Run("SubscribeAfterShutdownFails", func(t *testing.T) {
		b := NewBroker()
		b.Shutdown()

		if _, err := b.Subscribe(TopicIndex); err == nil {
			t.Error("expected error after shutdown")
		}
	})

	t.Run("SlowClientDoesNotBlockPublish", func(t *testing.T) {
		b := NewBroker()
		defer b.Shutdown()

		if _, err := b.Subscribe(TopicIndex); err != nil {
			t.Fatal(err)
		}

		// Canal com buffer 100: publicar mais que isso não pode travar.
		for i := 0; i < 250; i++ {
			b.Publish(TopicIndex, "index_published", "{}")
		}
	})
}
