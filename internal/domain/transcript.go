package domain

// Word is one recognized token with millisecond timing.
type Word struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Utterance is a contiguous span of transcript text attributed to one speaker.
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// Transcript is the validated payload returned by the remote transcription
// service once a remote job reaches its completed state.
type Transcript struct {
	RemoteID   string      `json:"remoteId"`
	Text       string      `json:"text"`
	DurationMS int         `json:"durationMs"`
	Utterances []Utterance `json:"utterances,omitempty"`
	Words      []Word      `json:"words,omitempty"`
}
