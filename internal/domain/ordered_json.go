package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MarshalJSON writes the table as a JSON object whose keys keep TOC order.
func (t TableOfContents) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Topic)
		if err != nil {
			return nil, err
		}
		pages := e.Pages
		if pages == nil {
			pages = []int{}
		}
		val, err := json.Marshal(pages)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a topic → pages object, keeping key order. Page values
// may be numbers, numeric strings, or a single value instead of a list;
// anything that is not a whole number is dropped. Repeated keys are merged.
func (t *TableOfContents) UnmarshalJSON(data []byte) error {
	t.Entries = nil
	index := make(map[string]int)

	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		pages := parsePageList(raw)
		if i, ok := index[key]; ok {
			t.Entries[i].Pages = append(t.Entries[i].Pages, pages...)
			return nil
		}
		index[key] = len(t.Entries)
		t.Entries = append(t.Entries, TOCEntry{Topic: key, Pages: pages})
		return nil
	})
	if err != nil {
		return fmt.Errorf("table of contents: %w", err)
	}
	return nil
}

// MarshalJSON writes the summaries as a JSON object in topic order.
func (s TopicSummaries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ts := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ts.Topic)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(ts.Summary)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a topic → summary object, keeping key order.
func (s *TopicSummaries) UnmarshalJSON(data []byte) error {
	var out TopicSummaries
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var summary string
		if err := json.Unmarshal(raw, &summary); err != nil {
			// Non-string values are kept in their JSON form.
			summary = string(raw)
		}
		out = append(out, TopicSummary{Topic: key, Summary: summary})
		return nil
	})
	if err != nil {
		return fmt.Errorf("topic summaries: %w", err)
	}
	*s = out
	return nil
}

// decodeObject walks the members of a JSON object in document order.
func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("value for %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func parsePageList(raw json.RawMessage) []int {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil
	}

	var values []interface{}
	switch typed := v.(type) {
	case []interface{}:
		values = typed
	default:
		values = []interface{}{typed}
	}

	pages := make([]int, 0, len(values))
	for _, value := range values {
		if p, ok := pageNumber(value); ok {
			pages = append(pages, p)
		}
	}
	return pages
}

func pageNumber(v interface{}) (int, bool) {
	var s string
	switch typed := v.(type) {
	case json.Number:
		s = typed.String()
	case string:
		s = strings.TrimSpace(typed)
	default:
		return 0, false
	}

	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}
