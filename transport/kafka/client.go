// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package kafka ships compacted container blocks as Kafka messages and
// reads them back: a thin sarama.Client constructor, a Block seam between
// the compacted payload and the wire message, and an async producer loop
// that drains the client's Successes/Errors channels on its own goroutines.
package kafka

import (
	"os"

	"github.com/Shopify/sarama"
)

// NewConfig returns the sarama.Config this package's producers and
// consumers are built against: snappy-compressed, acknowledged writes,
// client ID set to the local hostname when available.
func NewConfig() *sarama.Config {
	config := sarama.NewConfig()
	hostname, err := os.Hostname()
	if err != nil {
		hostname = ""
	}
	config.ClientID = hostname
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	return config
}

// NewClient returns a Kafka client configured by NewConfig.
func NewClient(addresses []string) (sarama.Client, error) {
	return sarama.NewClient(addresses, NewConfig())
}
