// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package kafka

import (
	"context"

	"github.com/Shopify/sarama"
	"golang.org/x/sync/errgroup"

	"github.com/aristanetworks/glog"
	"github.com/aristanetworks/relocatable/sync/semaphore"
)

// Handler processes one consumed block. Returning an error fails the
// errgroup and stops the consumer.
type Handler func(ctx context.Context, b Block) error

// ConsumeTopic reads every partition of topic from client and dispatches
// each message to handle, with at most maxConcurrent handlers running at
// once: an errgroup propagates the first error and cancels the rest, and a
// Weighted semaphore does the admission control, acquired before a handler
// goroutine is spawned and released when it returns.
func ConsumeTopic(ctx context.Context, client sarama.Client, topic string, maxConcurrent int64, handle Handler) error {
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		return err
	}
	defer consumer.Close()

	partitions, err := consumer.Partitions(topic)
	if err != nil {
		return err
	}

	sem := semaphore.NewWeighted(maxConcurrent)
	eg, ctx := errgroup.WithContext(ctx)

	for _, partition := range partitions {
		pc, err := consumer.ConsumePartition(topic, partition, sarama.OffsetOldest)
		if err != nil {
			return err
		}
		eg.Go(func() error {
			defer pc.Close()
			return consumePartition(ctx, pc, sem, handle)
		})
	}

	return eg.Wait()
}

func consumePartition(ctx context.Context, pc sarama.PartitionConsumer, sem *semaphore.Weighted, handle Handler) error {
	eg, ctx := errgroup.WithContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return eg.Wait()
		case err := <-pc.Errors():
			glog.Errorf("consumer error: %s", err)
		case msg, open := <-pc.Messages():
			if !open {
				return eg.Wait()
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				// ctx is the errgroup's context: a failed handler cancels
				// it, and its error is what the caller should see, not the
				// cancellation.
				if werr := eg.Wait(); werr != nil {
					return werr
				}
				return err
			}
			b := Block{Key: string(msg.Key), Bytes: msg.Value}
			eg.Go(func() error {
				defer sem.Release(1)
				return handle(ctx, b)
			})
		}
	}
}
