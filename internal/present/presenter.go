package present

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ironsheep/scan-quiz/internal/submit"
)

const (
	NoTextPlaceholder      = "No text detected"
	NoQuestionsPlaceholder = "No questions could be generated from the extracted text."

	LoadingText    = "Processing your image..."
	LoadingSubtext = "This may take a minute for large images or complex text"

	extractedHeading = "Extracted Text"
	questionsHeading = "Generated Questions"
	showAnswerLabel  = "[Show Answer]"
	hideAnswerLabel  = "[Hide Answer]"
)

// Presenter holds the current Success and its disclosure state. It is safe
// for concurrent use and can be registered directly as a submit.Observer.
type Presenter struct {
	mu         sync.Mutex
	result     *submit.Success
	disclosure Disclosure
}

// NewPresenter creates a presenter with nothing to show.
func NewPresenter() *Presenter {
	return &Presenter{}
}

// Update adopts a new outcome. A Success installs a fresh, all-hidden
// disclosure state; any other outcome clears the result.
func (p *Presenter) Update(o submit.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disclosure = Disclosure{}
	if s, ok := o.(submit.Success); ok {
		p.result = &s
		return
	}
	p.result = nil
}

// HasResult reports whether a Success is being presented.
func (p *Presenter) HasResult() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result != nil
}

// Len returns the number of question/answer pairs in the current result.
func (p *Presenter) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.result == nil {
		return 0
	}
	return len(p.result.QAPairs)
}

// Toggle flips the answer visibility of pair i and returns the new value.
// Indices outside the current result are ignored and report false.
func (p *Presenter) Toggle(i int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.result == nil || i < 0 || i >= len(p.result.QAPairs) {
		return false
	}
	return p.disclosure.Toggle(i)
}

// Visible reports whether the answer of pair i is shown.
func (p *Presenter) Visible(i int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result != nil && p.disclosure.Visible(i)
}

// Render writes the current result. It writes nothing without a Success.
//
// The extracted text is printed verbatim, or NoTextPlaceholder when empty.
// Pairs are numbered from 1 with the question always shown and the answer
// shown only when revealed. With text but no pairs, NoQuestionsPlaceholder
// is printed instead of an empty list.
func (p *Presenter) Render(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.result == nil {
		return nil
	}

	var b strings.Builder
	b.WriteString(extractedHeading + "\n")
	if p.result.Text != "" {
		b.WriteString(p.result.Text)
	} else {
		b.WriteString(NoTextPlaceholder)
	}
	b.WriteString("\n")

	switch {
	case len(p.result.QAPairs) > 0:
		b.WriteString("\n" + questionsHeading + "\n")
		for i, pair := range p.result.QAPairs {
			fmt.Fprintf(&b, "%d. %s\n", i+1, pair.Question)
			if p.disclosure.Visible(i) {
				fmt.Fprintf(&b, "   %s\n   %s\n", hideAnswerLabel, pair.Answer)
			} else {
				fmt.Fprintf(&b, "   %s\n", showAnswerLabel)
			}
		}
	case p.result.Text != "":
		b.WriteString("\n" + NoQuestionsPlaceholder + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderStatus writes the loading notice or the failure message for o.
// Idle and Success write nothing.
func RenderStatus(w io.Writer, o submit.Outcome) error {
	var err error
	switch v := o.(type) {
	case submit.Loading:
		_, err = fmt.Fprintf(w, "%s\n%s\n", LoadingText, LoadingSubtext)
	case submit.Failure:
		_, err = fmt.Fprintln(w, v.Message)
	}
	return err
}
