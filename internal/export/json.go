// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/llmchat-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports transcripts as a single JSON document.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// jsonDocument is the exported JSON shape.
type jsonDocument struct {
	Title      string           `json:"title"`
	CreatedAt  time.Time        `json:"created_at"`
	ExportedAt time.Time        `json:"exported_at"`
	Messages   []*model.Message `json:"messages"`
}

// Export converts a chat to indented JSON.
func (e *JSONExporter) Export(chat *model.ChatSession, msgs []*model.Message) ([]byte, error) {
	if chat == nil {
		return nil, fmt.Errorf("chat is nil")
	}
	doc := jsonDocument{
		Title:      chat.DisplayTitle(),
		CreatedAt:  chat.CreatedAt,
		ExportedAt: time.Now(),
		Messages:   msgs,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
