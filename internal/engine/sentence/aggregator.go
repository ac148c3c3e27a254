// Package sentence merges consecutive same-speaker transcription units
// into ordered sentences.
package sentence

import (
	"strings"
	"unicode"

	"meeting-transcription-service/internal/engine/align"
	"meeting-transcription-service/internal/models"
)

// Config holds the gap thresholds, in seconds, that control where a
// new sentence starts.
type Config struct {
	SpeakerChangeGap float64 // speaker changed and gap exceeds this
	PunctuationGap   float64 // terminal punctuation and gap exceeds this
	HardGap          float64 // gap alone exceeds this
	MinLength        int     // runes; shorter sentences merge backward
	MergeGap         float64 // backward merge allowed under this gap
}

// DefaultConfig returns the hand-tuned thresholds.
func DefaultConfig() Config {
	return Config{
		SpeakerChangeGap: 0.3,
		PunctuationGap:   0.5,
		HardGap:          1.5,
		MinLength:        6,
		MergeGap:         0.5,
	}
}

// Aggregator builds sentences from ordered labeled units.
type Aggregator struct {
	cfg Config
}

// New creates an aggregator with the given thresholds.
func New(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate folds labeled units into sentences. A new sentence starts
// when the speaker changes across a gap, after terminal punctuation
// with a pause, or across any long pause. Short sentences merge into
// the preceding same-speaker sentence in one left-to-right pass, and
// punctuation-only sentences are dropped. The trailing sentence is
// flushed even without terminal punctuation.
func (a *Aggregator) Aggregate(labeled []align.Labeled) []models.Sentence {
	var sentences []models.Sentence
	var cur *models.Sentence
	prevEnd := 0.0
	prevText := ""

	for _, l := range labeled {
		if cur == nil {
			s := startSentence(l)
			cur = &s
			prevEnd = l.Unit.End
			prevText = l.Unit.Text
			continue
		}

		gap := l.Unit.Start - prevEnd
		split := false
		switch {
		case l.Speaker != cur.Speaker && gap > a.cfg.SpeakerChangeGap:
			split = true
		case endsTerminal(prevText) && gap > a.cfg.PunctuationGap:
			split = true
		case gap > a.cfg.HardGap:
			split = true
		}

		if split {
			sentences = append(sentences, *cur)
			s := startSentence(l)
			cur = &s
		} else {
			cur.Text = joinUnits(cur.Text, l.Unit.Text)
			if l.Unit.End > cur.End {
				cur.End = l.Unit.End
			}
		}
		prevEnd = l.Unit.End
		prevText = l.Unit.Text
	}
	if cur != nil {
		sentences = append(sentences, *cur)
	}

	sentences = a.mergeShort(sentences)
	return dropPunctuationOnly(sentences)
}

// mergeShort folds sentences below the minimum length into the
// immediately preceding sentence of the same speaker when the gap is
// small. Single pass: a merged result is not re-examined.
func (a *Aggregator) mergeShort(in []models.Sentence) []models.Sentence {
	out := make([]models.Sentence, 0, len(in))
	for _, s := range in {
		if len(out) > 0 && len([]rune(strings.TrimSpace(s.Text))) < a.cfg.MinLength {
			prev := &out[len(out)-1]
			if prev.Speaker == s.Speaker && s.Start-prev.End < a.cfg.MergeGap {
				prev.Text = joinUnits(prev.Text, s.Text)
				if s.End > prev.End {
					prev.End = s.End
				}
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func dropPunctuationOnly(in []models.Sentence) []models.Sentence {
	out := in[:0]
	for _, s := range in {
		if !isPunctuationOnly(s.Text) {
			out = append(out, s)
		}
	}
	return out
}

func startSentence(l align.Labeled) models.Sentence {
	return models.Sentence{
		Text:    strings.TrimSpace(l.Unit.Text),
		Start:   l.Unit.Start,
		End:     l.Unit.End,
		Speaker: l.Speaker,
	}
}

func joinUnits(a, b string) string {
	b = strings.TrimSpace(b)
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	// Punctuation units attach without a space.
	if isPunctuationOnly(b) {
		return a + b
	}
	return a + " " + b
}

func endsTerminal(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	runes := []rune(text)
	switch runes[len(runes)-1] {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func isPunctuationOnly(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}
	for _, r := range text {
		if !unicode.IsPunct(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
