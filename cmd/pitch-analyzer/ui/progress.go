package ui

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"

	"github.com/spherical/pitch-analyzer/internal/domain"
)

// ProgressBar wraps a progressbar instance for deterministic progress display.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a new progress bar with the given total and description.
func NewProgressBar(total int64, description string) *ProgressBar {
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &ProgressBar{bar: bar}
}

// Set moves the progress bar to current.
func (p *ProgressBar) Set(current int64) {
	_ = p.bar.Set64(current)
}

// Describe updates the bar description.
func (p *ProgressBar) Describe(description string) {
	p.bar.Describe(description)
}

// Finish completes the progress bar.
func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}

// Spinner wraps a spinner instance for indeterminate progress display.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = stderr
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	s.spinner.Start()
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	s.spinner.Stop()
}

// UpdateMessage updates the spinner's message.
func (s *Spinner) UpdateMessage(message string) {
	s.spinner.Lock()
	s.spinner.Suffix = " " + message
	s.spinner.Unlock()
}

// DeckProgress renders pitch-deck pipeline events: a spinner while pages
// are rendered and the table of contents is extracted, then a bar over the
// topics.
type DeckProgress struct {
	spinner  *Spinner
	bar      *ProgressBar
	finished int
	skipped  []string
	failed   []string
}

// NewDeckProgress creates a progress display and starts its spinner.
func NewDeckProgress() *DeckProgress {
	p := &DeckProgress{spinner: NewSpinner("Rendering pages...")}
	p.spinner.Start()
	return p
}

// Run consumes events until the channel is closed.
func (p *DeckProgress) Run(events <-chan domain.StreamEvent) {
	for ev := range events {
		p.Handle(ev)
	}
	p.Stop()
}

// Handle applies one event.
func (p *DeckProgress) Handle(ev domain.StreamEvent) {
	switch ev.Type {
	case domain.EventPagesRendered:
		p.spinner.UpdateMessage(fmt.Sprintf("Extracting table of contents from %d pages...", ev.Total))
	case domain.EventTOCExtracted:
		p.spinner.Stop()
		p.bar = NewProgressBar(int64(ev.Total), "Analyzing topics")
	case domain.EventTopicComplete, domain.EventTopicFailed, domain.EventTopicSkipped:
		p.finished++
		switch ev.Type {
		case domain.EventTopicFailed:
			p.failed = append(p.failed, ev.Topic)
		case domain.EventTopicSkipped:
			p.skipped = append(p.skipped, ev.Topic)
		}
		if p.bar != nil {
			p.bar.Describe(ev.Topic)
			p.bar.Set(int64(p.finished))
		}
	case domain.EventError:
		p.Stop()
	}
}

// Stop halts the spinner and the bar.
func (p *DeckProgress) Stop() {
	p.spinner.Stop()
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}

// Finished returns the number of topics that reached a final state.
func (p *DeckProgress) Finished() int {
	return p.finished
}

// Skipped returns the topics skipped for lack of valid pages.
func (p *DeckProgress) Skipped() []string {
	return p.skipped
}

// Failed returns the topics whose synthesis failed.
func (p *DeckProgress) Failed() []string {
	return p.failed
}
