// Package campaign links sessions that share payment or contact identifiers.
// Scammers reuse UPI handles, phone numbers and landing pages across victims,
// so a shared identifier is strong evidence of one operation.
package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
	"github.com/MikeSquared-Agency/decoy/internal/report"
)

// DefaultWindow is how many recent reports Finder considers.
const DefaultWindow = 500

// Entry is one session's extracted intelligence.
type Entry struct {
	SessionID    string
	Intelligence conversation.Intelligence
}

// Campaign is a group of two or more sessions connected by shared identifiers.
type Campaign struct {
	Sessions []string `json:"sessions"`
	Shared   []string `json:"sharedIdentifiers"`
}

// identifiers lists the linkable artifacts. Keywords are too generic to link
// on, and bank accounts are stored masked, so distinct accounts can collide.
func identifiers(i conversation.Intelligence) []string {
	var out []string
	out = append(out, i.UPIIDs...)
	out = append(out, i.PhishingLinks...)
	out = append(out, i.PhoneNumbers...)
	return out
}

// Link groups entries into connected components using union-find, where two
// sessions are connected if they share any identifier. Singletons are dropped.
func Link(entries []Entry) []Campaign {
	if len(entries) == 0 {
		return nil
	}

	parent := make(map[string]string)
	var find func(string) string
	find = func(id string) string {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	owner := make(map[string]string) // identifier -> first session seen with it
	seenBy := make(map[string]map[string]struct{})
	for _, e := range entries {
		if _, ok := parent[e.SessionID]; !ok {
			parent[e.SessionID] = e.SessionID
		}
		for _, id := range identifiers(e.Intelligence) {
			if seenBy[id] == nil {
				seenBy[id] = make(map[string]struct{})
			}
			seenBy[id][e.SessionID] = struct{}{}
			if first, ok := owner[id]; ok {
				union(first, e.SessionID)
			} else {
				owner[id] = e.SessionID
			}
		}
	}

	groups := make(map[string][]string)
	for id := range parent {
		root := find(id)
		groups[root] = append(groups[root], id)
	}

	var campaigns []Campaign
	for root, sessions := range groups {
		if len(sessions) < 2 {
			continue
		}
		sort.Strings(sessions)

		var shared []string
		for id, by := range seenBy {
			if len(by) < 2 {
				continue
			}
			for s := range by {
				if find(s) == root {
					shared = append(shared, id)
					break
				}
			}
		}
		sort.Strings(shared)
		campaigns = append(campaigns, Campaign{Sessions: sessions, Shared: shared})
	}

	sort.Slice(campaigns, func(i, j int) bool {
		if len(campaigns[i].Sessions) != len(campaigns[j].Sessions) {
			return len(campaigns[i].Sessions) > len(campaigns[j].Sessions)
		}
		return campaigns[i].Sessions[0] < campaigns[j].Sessions[0]
	})
	return campaigns
}

// ReportSource yields archived report payloads, newest first.
type ReportSource interface {
	RecentReports(ctx context.Context, limit int) ([]json.RawMessage, error)
}

// Finder links sessions across the report archive.
type Finder struct {
	src    ReportSource
	window int
	logger *slog.Logger
}

func NewFinder(src ReportSource, window int, logger *slog.Logger) *Finder {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Finder{src: src, window: window, logger: logger}
}

// Campaigns links the most recent reports. Payloads that fail to decode are
// skipped.
func (f *Finder) Campaigns(ctx context.Context) ([]Campaign, error) {
	raw, err := f.src.RecentReports(ctx, f.window)
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var p report.Payload
		if err := json.Unmarshal(r, &p); err != nil {
			f.logger.Warn("skipping undecodable report", "error", err)
			continue
		}
		entries = append(entries, Entry{SessionID: p.SessionID, Intelligence: p.ExtractedIntelligence})
	}
	return Link(entries), nil
}
