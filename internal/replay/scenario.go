// Package replay drives recorded scam conversations through the engagement
// service, turn by turn, and summarizes what each session yielded.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
)

// Scenario is one recorded conversation. Only the counterparty's lines are
// replayed; our side is regenerated by the engine.
type Scenario struct {
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
	Messages []string       `json:"messages"`

	path string
}

// ParseScenarioFile reads a .json scenario document.
func ParseScenarioFile(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read: %w", err)
	}
	var sc Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse: %w", err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	sc.path = path
	return sc, nil
}

// transcriptLine is one message from a recorded .jsonl transcript.
type transcriptLine struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// ParseTranscriptFile reads a .jsonl transcript, one message per line, keeping
// the counterparty's messages in file order. Unparseable lines are skipped.
func ParseTranscriptFile(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	sc := Scenario{
		Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		path: path,
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var line transcriptLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		if conversation.ParseSender(line.Sender) != conversation.SenderScammer {
			continue
		}
		if text := strings.TrimSpace(line.Text); text != "" {
			sc.Messages = append(sc.Messages, text)
		}
	}
	if err := scanner.Err(); err != nil {
		return Scenario{}, fmt.Errorf("scan: %w", err)
	}
	return sc, nil
}

// Discover loads every .json and .jsonl scenario under dir, sorted by name.
// Files that fail to parse are returned as errors alongside the rest.
func Discover(dir string) ([]Scenario, []error) {
	var scenarios []Scenario
	var errs []error

	dir = expandHome(dir)
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			errs = append(errs, fmt.Errorf("walk %s: %w", path, err))
			return nil
		}
		if info.IsDir() {
			return nil
		}

		var sc Scenario
		switch filepath.Ext(path) {
		case ".json":
			sc, err = ParseScenarioFile(path)
		case ".jsonl":
			sc, err = ParseTranscriptFile(path)
		default:
			return nil
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			return nil
		}
		if len(sc.Messages) == 0 {
			return nil
		}
		scenarios = append(scenarios, sc)
		return nil
	})

	sort.Slice(scenarios, func(i, j int) bool {
		return scenarios[i].Name < scenarios[j].Name
	})
	return scenarios, errs
}
