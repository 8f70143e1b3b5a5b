package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ScrapedDataset is the raw extraction result of one scrape. No cross references are resolved here.
type ScrapedDataset struct {
	ScrapedAt time.Time      `json:"scrapedAt"`
	SourceURL string         `json:"sourceUrl,omitempty"`
	Users     []LegacyUser   `json:"users"`
	Events    []LegacyEvent  `json:"events"`
	Signups   []LegacySignup `json:"signups"`
}

// SignupsByEvent groups signups by legacy event ID, preserving scrape order within each group
func (d *ScrapedDataset) SignupsByEvent() map[string][]LegacySignup {
	grouped := make(map[string][]LegacySignup)
	for _, s := range d.Signups {
		grouped[s.EventID] = append(grouped[s.EventID], s)
	}
	return grouped
}

// SaveDataset writes the dataset as indented JSON, creating parent directories as needed
func SaveDataset(path string, dataset *ScrapedDataset) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create dataset directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write dataset file: %w", err)
	}
	return nil
}

// LoadDataset reads a dataset previously written by SaveDataset
func LoadDataset(path string) (*ScrapedDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	var dataset ScrapedDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to parse dataset file: %w", err)
	}
	return &dataset, nil
}
