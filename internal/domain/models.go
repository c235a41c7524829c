package domain

import (
	"strings"
	"time"
)

// AnalysisKind identifies which input produced an analysis.
type AnalysisKind string

const (
	KindTranscript AnalysisKind = "transcript"
	KindTextFile   AnalysisKind = "text_file"
	KindAudio      AnalysisKind = "audio"
	KindVideo      AnalysisKind = "video"
	KindPitchDeck  AnalysisKind = "pitch_deck"
)

// Valid reports whether k is a known analysis kind.
func (k AnalysisKind) Valid() bool {
	switch k {
	case KindTranscript, KindTextFile, KindAudio, KindVideo, KindPitchDeck:
		return true
	}
	return false
}

// PageImage represents a single rendered PDF page
type PageImage struct {
	PageNumber int    // 1-based
	Data       []byte // Encoded raster
	MIMEType   string
	Width      int
	Height     int
}

// Blob returns the page as a gateway attachment.
func (p PageImage) Blob() Blob {
	return Blob{MIMEType: p.MIMEType, Data: p.Data}
}

// Blob is a binary attachment sent to the model gateway alongside a prompt.
type Blob struct {
	MIMEType string
	Data     []byte
}

// EmbeddingVector is the numeric representation of a document.
type EmbeddingVector []float32

// TOCEntry maps one topic to the pages that discuss it.
type TOCEntry struct {
	Topic string
	Pages []int
}

// ValidPages returns the entry's pages that fall inside [1, pageCount],
// in their original order and without duplicates.
func (e TOCEntry) ValidPages(pageCount int) []int {
	seen := make(map[int]bool, len(e.Pages))
	valid := make([]int, 0, len(e.Pages))
	for _, p := range e.Pages {
		if p < 1 || p > pageCount || seen[p] {
			continue
		}
		seen[p] = true
		valid = append(valid, p)
	}
	return valid
}

// TableOfContents is the ordered topic → pages mapping produced by the first
// pitch-deck stage. Entries keep the order in which the model emitted them.
type TableOfContents struct {
	Entries []TOCEntry
}

// Topics returns the topic labels in order.
func (t TableOfContents) Topics() []string {
	topics := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		topics[i] = e.Topic
	}
	return topics
}

// Len returns the number of topics.
func (t TableOfContents) Len() int {
	return len(t.Entries)
}

// TopicSummary is the synthesized text for one topic.
type TopicSummary struct {
	Topic   string
	Summary string
}

// TopicSummaries is an ordered topic → summary mapping.
type TopicSummaries []TopicSummary

// Get returns the summary for a topic.
func (s TopicSummaries) Get(topic string) (string, bool) {
	for _, ts := range s {
		if ts.Topic == topic {
			return ts.Summary, true
		}
	}
	return "", false
}

// TopicFailure records a topic whose synthesis call failed.
type TopicFailure struct {
	Topic string `json:"topic"`
	Error string `json:"error"`
}

// Artifacts locates the files written for an analysis.
type Artifacts struct {
	Dir          string `json:"dir"`
	JSONPath     string `json:"json_path"`
	MarkdownPath string `json:"markdown_path"`
}

// AnalysisResult is the terminal artifact of the pitch-deck pipeline.
type AnalysisResult struct {
	ID                 string          `json:"id"`
	SourceName         string          `json:"source_name,omitempty"`
	PageCount          int             `json:"page_count"`
	TOC                TableOfContents `json:"toc"`
	Analysis           TopicSummaries  `json:"analysis"`
	EmbeddingDimension int             `json:"embedding_dimension"`
	SkippedTopics      []string        `json:"skipped_topics"`
	FailedTopics       []TopicFailure  `json:"failed_topics"`
	Markdown           string          `json:"markdown"`
	Artifacts          *Artifacts      `json:"artifacts,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	Cached             bool            `json:"cached,omitempty"`

	Embedding EmbeddingVector `json:"-"`
}

// Insight is one structured record extracted from a pitch transcript. Keys
// are chosen by the model (startup_name, summary, founders, funding, ...).
type Insight map[string]any

// StartupName returns the best available name field.
func (i Insight) StartupName() string {
	for _, key := range []string{"startup_name", "company", "Company", "company_name", "name"} {
		if v, ok := i[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// TranscriptAnalysis is the result of analyzing transcript text.
type TranscriptAnalysis struct {
	ID         string       `json:"id"`
	Kind       AnalysisKind `json:"kind"`
	SourceName string       `json:"source_name,omitempty"`
	Insights   []Insight    `json:"analysis"`
	CreatedAt  time.Time    `json:"created_at"`
	Cached     bool         `json:"cached,omitempty"`
}

// MediaAnalysis is the result of transcribing and analyzing audio or video.
type MediaAnalysis struct {
	ID         string       `json:"id"`
	Kind       AnalysisKind `json:"kind"`
	SourceName string       `json:"source_name,omitempty"`
	Transcript string       `json:"transcript"`
	Analysis   []Insight    `json:"analysis"`
	CreatedAt  time.Time    `json:"created_at"`
}

// EventType represents the type of stream event
type EventType string

const (
	EventStart          EventType = "start"
	EventPagesRendered  EventType = "pages_rendered"
	EventTOCExtracted   EventType = "toc_extracted"
	EventTopicSkipped   EventType = "topic_skipped"
	EventTopicComplete  EventType = "topic_complete"
	EventTopicFailed    EventType = "topic_failed"
	EventResultsWritten EventType = "results_written"
	EventError          EventType = "error"
	EventComplete       EventType = "complete"
)

// StreamEvent represents an event emitted during processing
type StreamEvent struct {
	Type      EventType   `json:"type"`
	Topic     string      `json:"topic,omitempty"`
	Done      int         `json:"done,omitempty"`
	Total     int         `json:"total,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
