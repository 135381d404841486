package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	applog "plannerd/internal/log"
	"plannerd/internal/model"
	"plannerd/internal/store"
)

// Fetch retrieves an ICS payload. A source starting with http:// or https://
// is fetched over the network; anything else is read as a local file path.
func Fetch(ctx context.Context, client *http.Client, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.ReadFile(source)
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "plannerd/1.0")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ics: fetch %s: unexpected status %s", source, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Importer writes feed occurrences into the event store as busy events.
// Occurrence identifiers are derived from the feed UID and start time, so
// re-importing the same feed is idempotent.
type Importer struct {
	store *store.Store
}

func NewImporter(s *store.Store) *Importer {
	return &Importer{store: s}
}

// Import adds every occurrence not yet present. It returns how many events
// were added.
func (im *Importer) Import(occurrences []Occurrence) (int, error) {
	added := 0
	for _, occ := range occurrences {
		id := occurrenceID(occ)
		if im.store.Contains(id) {
			continue
		}
		start := occ.Start
		ev := model.Event{
			ID:          id,
			Name:        occ.Summary,
			Description: describeOccurrence(occ),
			Start:       &start,
			End:         occ.End,
		}
		if ev.Name == "" {
			ev.Name = occ.UID
		}
		if err := im.store.Add(ev); err != nil {
			return added, fmt.Errorf("ics: import %s: %w", occ.UID, err)
		}
		added++
	}
	return added, nil
}

// ImportFeed fetches, parses, expands and imports one source in a single
// call.
func (im *Importer) ImportFeed(ctx context.Context, source string, cfg ExpandConfig) (int, error) {
	body, err := Fetch(ctx, nil, source)
	if err != nil {
		applog.Error("ics fetch failed", err, "source", source)
		return 0, err
	}
	events, err := Parse(body)
	if err != nil {
		applog.Error("ics parse failed", err, "source", source)
		return 0, err
	}
	occurrences, err := Expand(events, cfg)
	if err != nil {
		applog.Error("ics expand failed", err, "source", source)
		return 0, err
	}
	added, err := im.Import(occurrences)
	if err != nil {
		return added, err
	}
	applog.Info("ics feed imported", "source", source, "events", len(events), "occurrences", len(occurrences), "added", added)
	return added, nil
}

func occurrenceID(occ Occurrence) string {
	sum := sha256.Sum256([]byte(occ.UID + "|" + occ.Start.UTC().Format(time.RFC3339)))
	return "ics-" + hex.EncodeToString(sum[:8])
}

func describeOccurrence(occ Occurrence) string {
	parts := make([]string, 0, 2)
	if occ.Location != "" {
		parts = append(parts, occ.Location)
	}
	if occ.Description != "" {
		parts = append(parts, occ.Description)
	}
	return strings.Join(parts, "\n")
}
