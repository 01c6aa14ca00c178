package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

type fakePairsHandler struct {
	calls    []string
	failures int
}

func (h *fakePairsHandler) HandleChannelPairsChanged(_ context.Context, accountID string) error {
	h.calls = append(h.calls, accountID)
	if h.failures > 0 {
		h.failures--
		return errors.New("listener restart failed")
	}
	return nil
}

func newTestConsumer(h *fakePairsHandler) *KafkaConsumer {
	return &KafkaConsumer{
		topic:   "channel_pairs.changed",
		handler: h,
		logger:  zerolog.Nop(),
	}
}

func TestKafkaConsumer_ProcessMessage(t *testing.T) {
	h := &fakePairsHandler{}
	c := newTestConsumer(h)

	err := c.processMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: "channel_pairs.changed",
		Value: []byte(`{"account_id":" acc-7 "}`),
	})

	if err != nil {
		t.Fatalf("processMessage() error = %v", err)
	}
	if len(h.calls) != 1 || h.calls[0] != "acc-7" {
		t.Errorf("handler calls = %v, want [acc-7]", h.calls)
	}
}

func TestKafkaConsumer_ProcessMessage_Retries(t *testing.T) {
	h := &fakePairsHandler{failures: 2}
	c := newTestConsumer(h)

	err := c.processMessage(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"account_id":"acc-1"}`)})

	if err != nil {
		t.Fatalf("processMessage() error = %v", err)
	}
	if len(h.calls) != 3 {
		t.Errorf("handler called %d times, want 3", len(h.calls))
	}
}

func TestKafkaConsumer_ProcessMessage_GivesUp(t *testing.T) {
	h := &fakePairsHandler{failures: maxRetries + 1}
	c := newTestConsumer(h)

	err := c.processMessage(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"account_id":"acc-1"}`)})

	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if len(h.calls) != maxRetries {
		t.Errorf("handler called %d times, want %d", len(h.calls), maxRetries)
	}
}

func TestKafkaConsumer_ProcessMessage_SkipsBadEvents(t *testing.T) {
	h := &fakePairsHandler{}
	c := newTestConsumer(h)

	for _, value := range []string{`not json`, `{}`, `{"account_id":"  "}`} {
		if err := c.processMessage(context.Background(), &sarama.ConsumerMessage{Value: []byte(value)}); err != nil {
			t.Errorf("processMessage(%q) error = %v", value, err)
		}
	}
	if len(h.calls) != 0 {
		t.Errorf("handler should not be called, got %v", h.calls)
	}
}
