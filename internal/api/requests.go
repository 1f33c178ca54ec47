// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tagora/engine/internal/aggregator"
	"github.com/tagora/engine/internal/apperr"
	"github.com/tagora/engine/internal/dictionary"
	"github.com/tagora/engine/internal/models"
	"github.com/tagora/engine/internal/profile"
)

// msRange is a parsed time_range query parameter in millisecond
// resolution, half-open [Start, End) (§6.2).
type msRange struct {
	StartMs int64
	EndMs   int64
}

// parseTimeRange parses the "<start>_<end>" time_range query parameter
// (§6.2): each side is an RFC-3339 instant without the trailing "Z",
// which this function appends before parsing.
func parseTimeRange(raw string) (msRange, error) {
	if raw == "" {
		return msRange{}, apperr.BadRequest("missing required query parameter: time_range", nil)
	}

	parts := strings.SplitN(raw, "_", 2)
	if len(parts) != 2 {
		return msRange{}, apperr.BadRequest("malformed time_range: expected \"<start>_<end>\"", nil)
	}

	start, err := time.Parse(time.RFC3339Nano, parts[0]+"Z")
	if err != nil {
		return msRange{}, apperr.BadRequest("malformed time_range start", err)
	}
	end, err := time.Parse(time.RFC3339Nano, parts[1]+"Z")
	if err != nil {
		return msRange{}, apperr.BadRequest("malformed time_range end", err)
	}

	return msRange{StartMs: start.UnixMilli(), EndMs: end.UnixMilli()}, nil
}

// parseLimit parses the optional limit query parameter, defaulting to
// and capping at profile.MaxTags (§6.2).
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return profile.MaxTags, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.BadRequest("malformed limit", err)
	}
	if n <= 0 {
		return 0, apperr.BadRequest("limit must be positive", nil)
	}
	if n > profile.MaxTags {
		n = profile.MaxTags
	}
	return n, nil
}

// resolveFilter looks up an optional equality filter string against
// dim without interning it: an unresolved filter string becomes a
// Filter that matches no row (§4.4's "no-such-id" edge case), never a
// dictionary insert and never an error.
func resolveFilter(dict *dictionary.Dictionary, dim dictionary.Dimension, values []string) aggregator.Filter {
	if len(values) == 0 || values[0] == "" {
		return aggregator.NoFilter
	}
	id, ok := dict.TryID(dim, values[0])
	if !ok {
		return aggregator.UnresolvedFilter()
	}
	return aggregator.Filter{Present: true, ID: uint16(id)}
}

// parseMetrics parses the repeated aggregates query parameter,
// preserving request order (§6.3).
func parseMetrics(values []string) ([]aggregator.Metric, error) {
	if len(values) == 0 {
		return nil, apperr.BadRequest("missing required query parameter: aggregates", nil)
	}
	metrics := make([]aggregator.Metric, 0, len(values))
	for _, v := range values {
		switch v {
		case "COUNT":
			metrics = append(metrics, aggregator.Count)
		case "SUM_PRICE":
			metrics = append(metrics, aggregator.SumPrice)
		default:
			return nil, apperr.BadRequest("unrecognised aggregate metric: "+v, nil)
		}
	}
	return metrics, nil
}

// parseAction parses the required action query parameter.
func parseAction(raw string) (models.Action, error) {
	action, ok := models.ParseAction(raw)
	if !ok {
		return models.ActionUnknown, apperr.BadRequest("unknown action: "+raw, nil)
	}
	return action, nil
}

// queryValues is the shared url.Values handlers parse their query
// parameters from.
func queryValues(r *http.Request) url.Values {
	return r.URL.Query()
}
