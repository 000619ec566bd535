// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// The relocbench tool builds a relocatable map, compacts it to a single
// contiguous block, persists that block to disk, reloads it, and serves its
// live occupancy as Prometheus metrics. It exists to exercise the whole
// stack end to end the way a real container-hosting service would.
package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/rand"

	"github.com/aristanetworks/glog"
	"github.com/aristanetworks/relocatable/hashmap"
	"github.com/aristanetworks/relocatable/keyhash"
	"github.com/aristanetworks/relocatable/metrics"
	"github.com/aristanetworks/relocatable/persist"
	"github.com/aristanetworks/relocatable/reloc"
)

var (
	entries    = flag.Int("entries", 100000, "number of key-value pairs to insert")
	seed       = flag.Uint64("seed", 1, "seed for the pseudo-random key order and values")
	snapshot   = flag.String("snapshot", "", "path to persist the compacted map to; empty disables persistence")
	listenAddr = flag.String("listenaddr", ":8080", "address on which to expose /metrics")
)

type sessionValue = reloc.Plain[int64]

func main() {
	flag.Parse()

	hasher := keyhash.NewHasher()
	m := hashmap.WithCapacity[int, sessionValue, *sessionValue](*entries, hasher.Int, keyhash.Equal[int]())

	// Insertion order matters for an open-addressing table: sequential keys
	// exercise probe chains very differently than the arrival order a real
	// session store sees. Shuffle the key order so the benchmark's capacity
	// growth and tombstone behavior reflect that.
	rng := rand.New(rand.NewSource(*seed))
	keys := make([]int, *entries)
	for i := range keys {
		keys[i] = i
	}
	rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	start := time.Now()
	for _, k := range keys {
		m.Insert(k, sessionValue{Val: rng.Int63()})
	}
	glog.Infof("inserted %d entries in %s (capacity=%d, used=%d)",
		*entries, time.Since(start), m.Capacity(), m.NumberUsed())

	if *snapshot != "" {
		type M = hashmap.Map[int, sessionValue, *sessionValue]
		if err := persist.Save[M, *M](*snapshot, &m); err != nil {
			glog.Fatalf("failed to persist snapshot: %s", err)
		}
		glog.Infof("wrote compacted snapshot to %q", *snapshot)

		reloaded, err := persist.Load[M, *M](*snapshot)
		if err != nil {
			glog.Fatalf("failed to reload snapshot: %s", err)
		}
		// hashFn/equalFn don't survive the round trip through bytes; a real
		// restart would reconstruct the same hasher here before touching
		// the reloaded map.
		reloaded.SetHashers(hasher.Int, keyhash.Equal[int]())
		if reloaded.Len() != m.Len() {
			glog.Fatalf("reloaded snapshot has %d entries, want %d", reloaded.Len(), m.Len())
		}
		m = reloaded
	}

	collector := metrics.NewCollector()
	collector.TrackMap("relocbench", &m)
	prometheus.MustRegister(collector)

	http.Handle("/metrics", promhttp.Handler())
	glog.Infof("serving metrics on %s", *listenAddr)
	glog.Fatal(http.ListenAndServe(*listenAddr, nil))
}
