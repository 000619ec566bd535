// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package metrics exposes the live occupancy of relocatable containers as
// Prometheus gauges through a custom prometheus.Collector rather than
// package-level metrics registered up front: a container's size changes out
// from under any fixed set of labels, so the values have to be computed at
// scrape time.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MapStats is anything that can report an open-addressing map's current
// occupancy; *hashmap.Map[K,V,PV] satisfies it without this package needing
// a type parameter for K, V or PV.
type MapStats interface {
	Len() int
	NumberUsed() int
	Capacity() int
}

// VectorStats is the Vector analogue of MapStats.
type VectorStats interface {
	Len() int
	Capacity() int
}

var (
	mapAliveDesc = prometheus.NewDesc(
		"relocatable_map_entries_alive",
		"Number of live key-value pairs in a relocatable map.",
		[]string{"name"}, nil,
	)
	mapUsedDesc = prometheus.NewDesc(
		"relocatable_map_entries_used",
		"Number of alive-or-tombstoned slots in a relocatable map's table.",
		[]string{"name"}, nil,
	)
	mapCapacityDesc = prometheus.NewDesc(
		"relocatable_map_capacity",
		"Total slot count of a relocatable map's table.",
		[]string{"name"}, nil,
	)
	vectorLenDesc = prometheus.NewDesc(
		"relocatable_vector_length",
		"Number of live elements in a relocatable vector.",
		[]string{"name"}, nil,
	)
	vectorCapacityDesc = prometheus.NewDesc(
		"relocatable_vector_capacity",
		"Allocated element capacity of a relocatable vector.",
		[]string{"name"}, nil,
	)
)

// Collector is a prometheus.Collector over a fixed set of named containers.
// Containers are registered once by name; Collect reads their current
// counters at every scrape, so growth, compaction, and tombstone buildup
// all show up without any further wiring.
type Collector struct {
	maps    map[string]MapStats
	vectors map[string]VectorStats
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		maps:    make(map[string]MapStats),
		vectors: make(map[string]VectorStats),
	}
}

// TrackMap registers m under name. A later TrackMap call with the same name
// replaces the tracked container.
func (c *Collector) TrackMap(name string, m MapStats) {
	c.maps[name] = m
}

// TrackVector registers v under name.
func (c *Collector) TrackVector(name string, v VectorStats) {
	c.vectors[name] = v
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- mapAliveDesc
	ch <- mapUsedDesc
	ch <- mapCapacityDesc
	ch <- vectorLenDesc
	ch <- vectorCapacityDesc
}

// Collect implements prometheus.Collector. Names are visited in sorted
// order so that repeated scrapes emit metrics in a stable sequence, which
// keeps textual diffs between two /metrics snapshots readable.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	mapNames := maps.Keys(c.maps)
	slices.Sort(mapNames)
	for _, name := range mapNames {
		m := c.maps[name]
		ch <- prometheus.MustNewConstMetric(mapAliveDesc, prometheus.GaugeValue, float64(m.Len()), name)
		ch <- prometheus.MustNewConstMetric(mapUsedDesc, prometheus.GaugeValue, float64(m.NumberUsed()), name)
		ch <- prometheus.MustNewConstMetric(mapCapacityDesc, prometheus.GaugeValue, float64(m.Capacity()), name)
	}

	vectorNames := maps.Keys(c.vectors)
	slices.Sort(vectorNames)
	for _, name := range vectorNames {
		v := c.vectors[name]
		ch <- prometheus.MustNewConstMetric(vectorLenDesc, prometheus.GaugeValue, float64(v.Len()), name)
		ch <- prometheus.MustNewConstMetric(vectorCapacityDesc, prometheus.GaugeValue, float64(v.Capacity()), name)
	}
}
