// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"github.com/tagora/engine/internal/aggregator"
	"github.com/tagora/engine/internal/dictionary"
	"github.com/tagora/engine/internal/engine"
	"github.com/tagora/engine/internal/ingest"
	"github.com/tagora/engine/internal/minute"
	"github.com/tagora/engine/internal/profile"
)

// newTestEngine builds a fully wired, durable-tier-free Engine for
// handler tests, bypassing engine.New (and its config.Config
// dependency) since every field is exported.
func newTestEngine() *engine.Engine {
	dictionary.SetWidths(dictionary.DefaultWidths)
	dict := dictionary.New()
	profileStore := profile.NewWithShards(4)
	minuteStore := minute.NewWithShards(4)
	agg := aggregator.NewWithWorkers(minuteStore, 4)
	coordinator := ingest.New(dict, profileStore, minuteStore, nil)

	return &engine.Engine{
		Dictionary: dict,
		Profile:    profileStore,
		Minute:     minuteStore,
		Aggregator: agg,
		Ingest:     coordinator,
	}
}

func newTestHandler() *Handler {
	return NewHandler(newTestEngine())
}
