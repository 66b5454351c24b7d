package format

import (
	"fmt"
	"strings"
	"time"

	"tube-transcriber/internal/domain"
)

// Documents holds the two rendered transcript artifacts.
type Documents struct {
	Full     string
	Speakers string
}

const (
	noUtterances     = "No utterances available."
	noWordTimestamps = "No word timestamps available."
)

var separator = strings.Repeat("=", 50)

// Format renders a transcript into the full annotated document and the
// speaker-grouped document. It has no side effects; persisting the output is
// the orchestrator's responsibility.
func Format(t domain.Transcript, title, sourceURL string, generatedAt time.Time) Documents {
	speakers := SpeakerDocument(t)

	lines := []string{
		separator,
		"VIDEO TRANSCRIPT: " + title,
		"URL: " + sourceURL,
		separator + "\n",
		"=== INFO ===\n",
		"Date: " + generatedAt.Format("2006-01-02 15:04:05"),
		"Duration: " + FormatTime(t.DurationMS),
		separator + "\n",
		"=== SPEAKER TRANSCRIPT ===\n",
		speakers,
		separator + "\n",
		"=== TIMESTAMPS ===\n",
		wordTimestamps(t),
		separator + "\n",
		"=== FULL TEXT ===\n",
		t.Text,
		"\n" + separator,
	}

	return Documents{
		Full:     strings.Join(lines, "\n"),
		Speakers: speakers,
	}
}

// SpeakerDocument merges successive utterances by the same speaker into one
// paragraph. A paragraph break happens exactly when the speaker changes.
func SpeakerDocument(t domain.Transcript) string {
	if len(t.Utterances) == 0 {
		return noUtterances
	}

	var paragraphs []string
	currentSpeaker := ""
	var currentText []string

	flush := func() {
		if len(currentText) == 0 {
			return
		}
		paragraphs = append(paragraphs, fmt.Sprintf("Speaker %s:\n%s\n", currentSpeaker, strings.Join(currentText, " ")))
		currentText = nil
	}

	for _, u := range t.Utterances {
		speaker := u.Speaker
		if speaker == "" {
			speaker = "Unknown"
		}
		if speaker != currentSpeaker {
			flush()
			currentSpeaker = speaker
		}
		if text := strings.TrimSpace(u.Text); text != "" {
			currentText = append(currentText, text)
		}
	}
	flush()

	return strings.Join(paragraphs, "\n")
}

// wordTimestamps renders one "[start - end] word" line per recognized word.
func wordTimestamps(t domain.Transcript) string {
	if len(t.Words) == 0 {
		return noWordTimestamps
	}

	lines := make([]string, 0, len(t.Words))
	for _, w := range t.Words {
		lines = append(lines, fmt.Sprintf("[%s - %s] %s", FormatTime(w.Start), FormatTime(w.End), w.Text))
	}
	return strings.Join(lines, "\n")
}

// FormatTime renders a millisecond offset as MM:SS.ss.
func FormatTime(ms int) string {
	seconds := float64(ms) / 1000
	minutes := int(seconds) / 60
	return fmt.Sprintf("%02d:%05.2f", minutes, seconds-float64(minutes*60))
}
