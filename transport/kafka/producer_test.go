// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package kafka

import (
	"testing"

	"github.com/Shopify/sarama"
)

type mockAsyncProducer struct {
	input     chan *sarama.ProducerMessage
	successes chan *sarama.ProducerMessage
	errors    chan *sarama.ProducerError
}

func newMockAsyncProducer() *mockAsyncProducer {
	return &mockAsyncProducer{
		input:     make(chan *sarama.ProducerMessage),
		successes: make(chan *sarama.ProducerMessage),
		errors:    make(chan *sarama.ProducerError),
	}
}

func (p *mockAsyncProducer) AsyncClose() { panic("not implemented") }

func (p *mockAsyncProducer) Close() error {
	close(p.successes)
	close(p.errors)
	return nil
}

func (p *mockAsyncProducer) Input() chan<- *sarama.ProducerMessage     { return p.input }
func (p *mockAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return p.successes }
func (p *mockAsyncProducer) Errors() <-chan *sarama.ProducerError      { return p.errors }
func (p *mockAsyncProducer) IsTransactional() bool                     { return false }
func (p *mockAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag   { return 0 }
func (p *mockAsyncProducer) BeginTxn() error                           { return nil }
func (p *mockAsyncProducer) CommitTxn() error                          { return nil }
func (p *mockAsyncProducer) AbortTxn() error                           { return nil }
func (p *mockAsyncProducer) AddOffsetsToTxn(map[string][]*sarama.PartitionOffsetMetadata, string) error {
	return nil
}
func (p *mockAsyncProducer) AddMessageToTxn(*sarama.ConsumerMessage, string, *string) error {
	return nil
}

func TestBlockProducerPublishesToInput(t *testing.T) {
	mock := newMockAsyncProducer()
	p := newBlockProducer("blocks", mock)

	go p.Write(Block{Key: "session-1", Bytes: []byte("compacted-bytes")})

	msg := <-mock.input
	if msg.Topic != "blocks" {
		t.Fatalf("Topic = %q, want %q", msg.Topic, "blocks")
	}
	key, err := msg.Key.Encode()
	if err != nil {
		t.Fatalf("Key.Encode: %v", err)
	}
	if string(key) != "session-1" {
		t.Fatalf("Key = %q, want %q", key, "session-1")
	}
	value, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("Value.Encode: %v", err)
	}
	if string(value) != "compacted-bytes" {
		t.Fatalf("Value = %q, want %q", value, "compacted-bytes")
	}

	p.Stop()
}

func TestBlockProducerStopUnblocksWrite(t *testing.T) {
	mock := newMockAsyncProducer()
	p := newBlockProducer("blocks", mock)
	p.Stop()

	done := make(chan struct{})
	go func() {
		p.Write(Block{Key: "k", Bytes: []byte("v")})
		close(done)
	}()
	<-done
}
