package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.yaml.in/yaml/v3"

	"github.com/pavelanni/examprep/internal/question"
)

// ErrNoDocuments is returned when input holds neither a document nor a list
// of documents.
var ErrNoDocuments = errors.New("no question documents")

// Decode parses raw authoring input: a single document or a list of them,
// written as JSON or YAML. Non-object list entries are dropped.
func Decode(data []byte) ([]Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoDocuments
	}

	var raw any
	if json.Valid(data) {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	switch v := raw.(type) {
	case map[string]any:
		return []Document{v}, nil
	case []any:
		docs := make([]Document, 0, len(v))
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				docs = append(docs, m)
			}
		}
		if len(docs) == 0 {
			return nil, ErrNoDocuments
		}
		return docs, nil
	}
	return nil, ErrNoDocuments
}

// NormalizeAll normalizes every document under one category.
func NormalizeAll(docs []Document, category string) []question.Question {
	out := make([]question.Question, len(docs))
	for i, d := range docs {
		out[i] = Normalize(d, category)
	}
	return out
}
