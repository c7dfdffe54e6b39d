package feed

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"sentiment-trader/internal/types"
)

const (
	headlineFields  = 4
	sentimentFields = 5
)

// ParseError reports a record that could not be decoded.
type ParseError struct {
	Line   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %q: %s: %v", e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %q: %s", e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SplitLine splits at every comma immediately followed by a double quote and
// strips one enclosing pair of quotes from each element. A headline that
// itself contains `,"` cannot round-trip.
func SplitLine(line string) []string {
	var raw []string
	start := 0
	for i := 0; i+1 < len(line); i++ {
		if line[i] == ',' && line[i+1] == '"' {
			raw = append(raw, line[start:i])
			start = i + 1
		}
	}
	raw = append(raw, line[start:])

	out := make([]string, len(raw))
	for i, e := range raw {
		if len(e) >= 2 && e[0] == '"' && e[len(e)-1] == '"' {
			e = e[1 : len(e)-1]
		}
		out[i] = e
	}
	return out
}

// ParseHeadline decodes a four-field headline line.
func ParseHeadline(line string) (types.Headline, error) {
	f := SplitLine(line)
	if len(f) != headlineFields {
		return types.Headline{}, &ParseError{Line: line, Reason: fmt.Sprintf("expected %d fields, got %d", headlineFields, len(f))}
	}
	collected, published, err := parseTimes(line, f[1], f[2])
	if err != nil {
		return types.Headline{}, err
	}
	return types.Headline{
		Source:        f[0],
		CollectedTime: collected,
		PublishedTime: published,
		Text:          f[3],
	}, nil
}

// ParseSentimentLine decodes a five-field sentiment line. The label is not
// validated; unknown labels are skipped by the strategy.
func ParseSentimentLine(line string) (types.SentimentEvent, error) {
	f := SplitLine(line)
	if len(f) != sentimentFields {
		return types.SentimentEvent{}, &ParseError{Line: line, Reason: fmt.Sprintf("expected %d fields, got %d", sentimentFields, len(f))}
	}
	collected, published, err := parseTimes(line, f[1], f[2])
	if err != nil {
		return types.SentimentEvent{}, err
	}
	return types.SentimentEvent{
		CollectedSource: f[0],
		CollectedTime:   collected,
		PublishedTime:   published,
		Headline:        f[3],
		Sentiment:       types.Sentiment(f[4]),
	}, nil
}

func parseTimes(line, collected, published string) (int64, int64, error) {
	c, err := strconv.ParseInt(collected, 10, 64)
	if err != nil {
		return 0, 0, &ParseError{Line: line, Reason: "invalid collected time", Err: err}
	}
	p, err := strconv.ParseInt(published, 10, 64)
	if err != nil {
		return 0, 0, &ParseError{Line: line, Reason: "invalid published time", Err: err}
	}
	return c, p, nil
}

func FormatHeadline(h types.Headline) string {
	return fmt.Sprintf(`"%s","%d","%d","%s"`, h.Source, h.CollectedTime, h.PublishedTime, h.Text)
}

func FormatSentimentLine(e types.SentimentEvent) string {
	return fmt.Sprintf(`"%s","%d","%d","%s","%s"`, e.CollectedSource, e.CollectedTime, e.PublishedTime, e.Headline, e.Sentiment)
}

// DecodeEnvelope decodes a JSON sentiment event as published on the channel.
func DecodeEnvelope(payload string) (types.SentimentEvent, error) {
	var e types.SentimentEvent
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return types.SentimentEvent{}, &ParseError{Line: payload, Reason: "invalid envelope", Err: err}
	}
	return e, nil
}

func EncodeEnvelope(e types.SentimentEvent) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// CleanText collapses line breaks so a headline fits on one line.
func CleanText(s string) string {
	return strings.TrimSpace(lineBreaks.ReplaceAllString(s, " "))
}
