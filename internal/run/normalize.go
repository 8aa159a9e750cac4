package run

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/streetrush/backend/internal/models"
)

// NormalizeResponse converts a raw submitted response into the canonical
// string form used for comparison. The accepted JSON shape depends on the
// question format:
//
//	single_choice     "B"
//	multi_select      ["A","C"]
//	free_fill         "goldman sachs"
//	ordered_sequence  ["C","A","B"]
//
// Equivalent responses always normalize to the same string, so comparison
// against the stored correct key is an exact string match.
func NormalizeResponse(format models.QuestionFormat, raw json.RawMessage) (string, error) {
	switch format {
	case models.FormatSingleChoice:
		var label string
		if err := json.Unmarshal(raw, &label); err != nil {
			return "", fmt.Errorf("single_choice response must be a JSON string: %w", err)
		}
		return normalizeLabel(label), nil

	case models.FormatMultiSelect:
		labels, err := decodeLabels(raw)
		if err != nil {
			return "", fmt.Errorf("multi_select response must be a JSON array of strings: %w", err)
		}
		return canonicalSet(labels), nil

	case models.FormatFreeFill:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", fmt.Errorf("free_fill response must be a JSON string: %w", err)
		}
		return normalizeText(text), nil

	case models.FormatOrderedSequence:
		labels, err := decodeLabels(raw)
		if err != nil {
			return "", fmt.Errorf("ordered_sequence response must be a JSON array of strings: %w", err)
		}
		return canonicalSequence(labels), nil

	default:
		return "", fmt.Errorf("unknown question format %q", format)
	}
}

// NormalizeKey canonicalizes a stored correct key the same way responses
// are canonicalized. Keys are stored as plain strings with elements joined
// by commas, e.g. "A,C" for multi_select.
func NormalizeKey(format models.QuestionFormat, key string) string {
	switch format {
	case models.FormatSingleChoice:
		return normalizeLabel(key)
	case models.FormatMultiSelect:
		return canonicalSet(strings.Split(key, ","))
	case models.FormatFreeFill:
		return normalizeText(key)
	case models.FormatOrderedSequence:
		return canonicalSequence(strings.Split(key, ","))
	default:
		return strings.TrimSpace(key)
	}
}

func decodeLabels(raw json.RawMessage) ([]string, error) {
	var labels []string
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

func normalizeLabel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// normalizeText lowercases and collapses internal whitespace so that
// "Goldman  Sachs " and "goldman sachs" compare equal.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// canonicalSet produces an order-independent, deduplicated form.
func canonicalSet(labels []string) string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		n := normalizeLabel(l)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

// canonicalSequence preserves order; only casing and spacing are ignored.
func canonicalSequence(labels []string) string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		n := normalizeLabel(l)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	return strings.Join(out, ",")
}

// setElements splits a canonical set string back into its elements.
// Used by partial-credit scoring.
func setElements(canonical string) []string {
	if canonical == "" {
		return nil
	}
	return strings.Split(canonical, ",")
}
