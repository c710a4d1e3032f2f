package kafka

import (
	"context"
	"testing"

	"github.com/lilyanlefevre/formula-corrector/pkg/config"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Origin string `json:"origin"`
		Count  int    `json:"count"`
	}
	got, err := DecodeJSON[payload]([]byte(`{"origin":"node-a","count":3}`))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if got.Origin != "node-a" || got.Count != 3 {
		t.Fatalf("unexpected payload %+v", got)
	}
	if _, err := DecodeJSON[payload]([]byte(`{`)); err == nil {
		t.Fatalf("expected error for truncated JSON")
	}
}

func TestPublishEmptyBatchIsNoop(t *testing.T) {
	p := NewProducer(config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}}, "fc.test", nil)
	defer p.Close()
	if err := p.PublishBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if p.Topic() != "fc.test" {
		t.Fatalf("Topic = %q", p.Topic())
	}
}

func TestPublishEncodeError(t *testing.T) {
	p := NewProducer(config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}}, "fc.test", nil)
	defer p.Close()
	err := p.Publish(context.Background(), Event{Key: "k", Value: make(chan int)})
	if err == nil {
		t.Fatalf("expected encode error")
	}
}
