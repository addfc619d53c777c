package metrics

import (
	"net/netip"

	"github.com/prometheus/client_golang/prometheus"

	"firestige.xyz/peeracct/internal/core"
	"firestige.xyz/peeracct/internal/diag"
	"firestige.xyz/peeracct/internal/peerstats"
)

// NameCache returns already-resolved peer names without blocking.
type NameCache interface {
	Cached(addr netip.Addr) (string, bool)
}

// PeerCollector exposes the peer store and diagnostics at scrape time.
type PeerCollector struct {
	store      *peerstats.Store
	diag       *diag.Sink
	names      NameCache
	peerSeries bool

	peerBytes *prometheus.Desc
	entries   *prometheus.Desc
	capacity  *prometheus.Desc
	events    *prometheus.Desc
	lastAddr  *prometheus.Desc
}

// NewPeerCollector creates a collector. names may be nil; when set, peer
// series carry a "name" label. peerSeries=false drops per-peer series.
func NewPeerCollector(store *peerstats.Store, sink *diag.Sink, names NameCache, peerSeries bool) *PeerCollector {
	peerLabels := []string{"family", "peer", "class", "direction"}
	if names != nil {
		peerLabels = append(peerLabels, "name")
	}
	return &PeerCollector{
		store:      store,
		diag:       sink,
		names:      names,
		peerSeries: peerSeries,
		peerBytes: prometheus.NewDesc(
			"peeracct_peer_bytes_total",
			"Bytes accounted per peer, traffic class and direction.",
			peerLabels, nil,
		),
		entries: prometheus.NewDesc(
			"peeracct_table_entries",
			"Peer rows in use per address family.",
			[]string{"family"}, nil,
		),
		capacity: prometheus.NewDesc(
			"peeracct_table_capacity",
			"Maximum peer rows per address family.",
			[]string{"family"}, nil,
		),
		events: prometheus.NewDesc(
			"peeracct_diag_events_total",
			"Hook outcomes by event.",
			[]string{"event"}, nil,
		),
		lastAddr: prometheus.NewDesc(
			"peeracct_diag_last_egress_ipv4",
			"Addresses of the last egress IPv4 frame, value is always 1.",
			[]string{"src", "dst"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *PeerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.peerBytes
	ch <- c.entries
	ch <- c.capacity
	ch <- c.events
	ch <- c.lastAddr
}

// Collect implements prometheus.Collector.
func (c *PeerCollector) Collect(ch chan<- prometheus.Metric) {
	occ := c.store.Occupancy()
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(occ.V4Entries), "ipv4")
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(occ.V6Entries), "ipv6")
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(occ.V4Capacity), "ipv4")
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(occ.V6Capacity), "ipv6")

	if c.diag != nil {
		snap := c.diag.Snapshot()
		for _, e := range diag.Events() {
			name := e.String()
			ch <- prometheus.MustNewConstMetric(c.events, prometheus.CounterValue, float64(snap.Events[name]), name)
		}
		ch <- prometheus.MustNewConstMetric(c.lastAddr, prometheus.GaugeValue, 1,
			snap.LastSrc4.String(), snap.LastDst4.String())
	}

	if !c.peerSeries {
		return
	}
	for _, rec := range c.store.Snapshot() {
		peer := rec.Peer.String()
		family := rec.Family()
		var name string
		if c.names != nil {
			name, _ = c.names.Cached(rec.Peer)
		}
		for _, class := range core.Classes {
			for _, dir := range []core.Direction{core.DirEgress, core.DirIngress} {
				labels := []string{family, peer, class.String(), dir.Flow()}
				if c.names != nil {
					labels = append(labels, name)
				}
				ch <- prometheus.MustNewConstMetric(c.peerBytes, prometheus.CounterValue,
					float64(rec.Counters.Get(class, dir)), labels...)
			}
		}
	}
}
