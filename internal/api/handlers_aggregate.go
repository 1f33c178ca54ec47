// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tagora/engine/internal/aggregator"
	"github.com/tagora/engine/internal/dictionary"
	"github.com/tagora/engine/internal/models"
)

// aggregateResponse is the exact §6.3 response shape.
type aggregateResponse struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// presentFilter pairs a fixed-order §6.3 filter column name with its
// resolved predicate and the raw request value echoed into every row.
type presentFilter struct {
	column string
	value  string
	filter aggregator.Filter
}

// Aggregates handles POST /aggregates (§6.3): build the canonical
// aggregator.Query from query parameters, run it, and shape the result
// into the fixed columns/rows response.
func (h *Handler) Aggregates(w http.ResponseWriter, r *http.Request) {
	q := queryValues(r)

	tr, err := parseTimeRange(q.Get("time_range"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	action, err := parseAction(q.Get("action"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	metrics, err := parseMetrics(q["aggregates"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	dict := h.engine.Dictionary
	var filters []presentFilter
	if v, ok := q["origin"]; ok && len(v) > 0 && v[0] != "" {
		filters = append(filters, presentFilter{"origin", v[0], resolveFilter(dict, dictionary.Origin, v)})
	}
	if v, ok := q["brand_id"]; ok && len(v) > 0 && v[0] != "" {
		filters = append(filters, presentFilter{"brand_id", v[0], resolveFilter(dict, dictionary.Brand, v)})
	}
	if v, ok := q["category_id"]; ok && len(v) > 0 && v[0] != "" {
		filters = append(filters, presentFilter{"category_id", v[0], resolveFilter(dict, dictionary.Category, v)})
	}

	query := aggregator.Query{
		StartMinute: models.MinuteIndex(tr.StartMs),
		EndMinute:   models.MinuteIndex(tr.EndMs),
		Action:      action,
		Metrics:     metrics,
	}
	for _, f := range filters {
		switch f.column {
		case "origin":
			query.Origin = f.filter
		case "brand_id":
			query.Brand = f.filter
		case "category_id":
			query.Category = f.filter
		}
	}

	buckets, err := h.engine.Aggregator.Run(r.Context(), query)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, shapeAggregateResponse(buckets, action, filters, metrics))
}

func shapeAggregateResponse(buckets []models.AggregateBucket, action models.Action, filters []presentFilter, metrics []aggregator.Metric) aggregateResponse {
	columns := make([]string, 0, 2+len(filters)+len(metrics))
	columns = append(columns, "1m_bucket", "action")
	for _, f := range filters {
		columns = append(columns, f.column)
	}
	for _, m := range metrics {
		columns = append(columns, metricColumnName(m))
	}

	rows := make([][]string, len(buckets))
	for i, b := range buckets {
		row := make([]string, 0, len(columns))
		row = append(row, formatMinuteBucket(b.MinuteIndex), action.String())
		for _, f := range filters {
			row = append(row, f.value)
		}
		for _, m := range metrics {
			row = append(row, formatMetricValue(b, m))
		}
		rows[i] = row
	}

	return aggregateResponse{Columns: columns, Rows: rows}
}

func metricColumnName(m aggregator.Metric) string {
	switch m {
	case aggregator.SumPrice:
		return "sum_price"
	default:
		return "count"
	}
}

func formatMetricValue(b models.AggregateBucket, m aggregator.Metric) string {
	switch m {
	case aggregator.SumPrice:
		return strconv.FormatUint(b.SumPrice, 10)
	default:
		return strconv.FormatUint(b.Count, 10)
	}
}

// formatMinuteBucket renders a minute index as the §6.3 timestamp
// format, "YYYY-MM-DDTHH:MM:SS".
func formatMinuteBucket(minuteIdx int64) string {
	return time.UnixMilli(minuteIdx * 60_000).UTC().Format("2006-01-02T15:04:05")
}
