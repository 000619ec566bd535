// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package kafka

import (
	"sync"

	"github.com/Shopify/sarama"

	"github.com/aristanetworks/glog"
)

// Block is a compacted container's byte image plus the key it should be
// published under. Producers never interpret the bytes; a compacted
// Vector or Map's image is self-contained and is decompacted entirely on
// the reading side.
type Block struct {
	Key   string
	Bytes []byte
}

// BlockProducer forwards Blocks written on its input channel to Kafka,
// with one goroutine feeding the async producer and two more draining its
// Successes and Errors channels so the producer never stalls on an
// unconsumed acknowledgement.
type BlockProducer struct {
	topic  string
	blocks chan Block
	sarama sarama.AsyncProducer
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewBlockProducer starts a producer publishing to topic over client. The
// caller retains ownership of client and must close it only after Stop
// returns.
func NewBlockProducer(topic string, client sarama.Client) (*BlockProducer, error) {
	sp, err := sarama.NewAsyncProducerFromClient(client)
	if err != nil {
		return nil, err
	}
	return newBlockProducer(topic, sp), nil
}

// newBlockProducer wires up a BlockProducer around an already-constructed
// sarama.AsyncProducer, so tests can substitute a mock for the real network
// client.
func newBlockProducer(topic string, sp sarama.AsyncProducer) *BlockProducer {
	p := &BlockProducer{
		topic:  topic,
		blocks: make(chan Block),
		sarama: sp,
		done:   make(chan struct{}),
	}
	p.wg.Add(3)
	go p.handleSuccesses()
	go p.handleErrors()
	go p.run()
	return p
}

// Write enqueues a block for publication. It blocks until the producer
// accepts it or Stop is called.
func (p *BlockProducer) Write(b Block) {
	select {
	case p.blocks <- b:
	case <-p.done:
	}
}

// Stop drains in-flight messages and shuts the producer down.
func (p *BlockProducer) Stop() {
	close(p.done)
	p.sarama.Close()
	p.wg.Wait()
}

func (p *BlockProducer) run() {
	defer p.wg.Done()
	for {
		select {
		case b, open := <-p.blocks:
			if !open {
				return
			}
			msg := &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(b.Key),
				Value: sarama.ByteEncoder(b.Bytes),
			}
			select {
			case p.sarama.Input() <- msg:
				glog.V(9).Infof("published compacted block: key=%s size_bytes=%d", b.Key, len(b.Bytes))
			case <-p.done:
				return
			}
		case <-p.done:
			return
		}
	}
}

func (p *BlockProducer) handleSuccesses() {
	defer p.wg.Done()
	for msg := range p.sarama.Successes() {
		glog.V(9).Infof("block acked: partition=%d offset=%d", msg.Partition, msg.Offset)
	}
}

func (p *BlockProducer) handleErrors() {
	defer p.wg.Done()
	for err := range p.sarama.Errors() {
		glog.Errorf("failed to publish block: %s", err)
	}
}
