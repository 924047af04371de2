// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsIngestion holds Prometheus metrics for the ingestion subsystem.
type metricsIngestion struct {
	once sync.Once

	filesProcessed  prometheus.Counter
	filesIgnored    prometheus.Counter
	filesFailed     prometheus.Counter
	entitiesWritten prometheus.Counter
	edgesWritten    prometheus.Counter
	testsExcluded   prometheus.Counter
	placeholders    prometheus.Counter

	parseDuration prometheus.Histogram
	writeDuration prometheus.Histogram
	totalDuration prometheus.Histogram
}

var ingMetrics metricsIngestion

func (m *metricsIngestion) init() {
	m.once.Do(func() {
		m.filesProcessed = prometheus.NewCounter(prometheus.CounterOpts{Name: "pt_ing_files_processed_total", Help: "Source files parsed and written"})
		m.filesIgnored = prometheus.NewCounter(prometheus.CounterOpts{Name: "pt_ing_files_ignored_total", Help: "Files skipped by eligibility gates"})
		m.filesFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "pt_ing_files_failed_total", Help: "Files that failed to parse or convert"})
		m.entitiesWritten = prometheus.NewCounter(prometheus.CounterOpts{Name: "pt_ing_entities_written_total", Help: "Code entities upserted into CodeGraph"})
		m.edgesWritten = prometheus.NewCounter(prometheus.CounterOpts{Name: "pt_ing_edges_written_total", Help: "Dependency edges upserted"})
		m.testsExcluded = prometheus.NewCounter(prometheus.CounterOpts{Name: "pt_ing_tests_excluded_total", Help: "Test entities filtered out of the code graph"})
		m.placeholders = prometheus.NewCounter(prometheus.CounterOpts{Name: "pt_ing_placeholders_total", Help: "External/unresolved placeholder entities created"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
		m.parseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "pt_ing_parse_seconds", Help: "Per-run parse duration", Buckets: buckets})
		m.writeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "pt_ing_write_seconds", Help: "Per-run batch write duration", Buckets: buckets})
		m.totalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "pt_ing_total_seconds", Help: "Total ingestion run duration", Buckets: buckets})

		prometheus.MustRegister(
			m.filesProcessed, m.filesIgnored, m.filesFailed,
			m.entitiesWritten, m.edgesWritten, m.testsExcluded, m.placeholders,
			m.parseDuration, m.writeDuration, m.totalDuration,
		)
	})
}
