package ocrapi

import (
	"encoding/json"
	"fmt"
)

// QAPair is one generated question with its answer.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Result is a validated recognition response.
type Result struct {
	// Text is the extracted text, verbatim.
	Text string

	// QAPairs preserves the order given by the backend.
	QAPairs []QAPair

	// ProcessingTime is the backend's own timing string, when reported.
	ProcessingTime string
}

// wireResult mirrors the response body. Pointers distinguish absent fields
// from empty ones.
type wireResult struct {
	Text           *string     `json:"text"`
	QAPairs        *[]wirePair `json:"qa_pairs"`
	ProcessingTime *string     `json:"processing_time,omitempty"`
}

type wirePair struct {
	Question *string `json:"question"`
	Answer   *string `json:"answer"`
}

// wireError is the body the backend sends with non-2xx statuses.
type wireError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// decodeResult validates body against the recognition response shape.
func decodeResult(body []byte) (*Result, error) {
	var w wireResult
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if w.Text == nil {
		return nil, fmt.Errorf("%w: missing text", ErrMalformedResponse)
	}
	if w.QAPairs == nil {
		return nil, fmt.Errorf("%w: missing qa_pairs", ErrMalformedResponse)
	}

	pairs := make([]QAPair, 0, len(*w.QAPairs))
	for i, p := range *w.QAPairs {
		if p.Question == nil || p.Answer == nil {
			return nil, fmt.Errorf("%w: qa_pairs[%d] incomplete", ErrMalformedResponse, i)
		}
		pairs = append(pairs, QAPair{Question: *p.Question, Answer: *p.Answer})
	}

	res := &Result{Text: *w.Text, QAPairs: pairs}
	if w.ProcessingTime != nil {
		res.ProcessingTime = *w.ProcessingTime
	}
	return res, nil
}
