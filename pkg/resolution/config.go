package resolution

import (
	"fmt"
	"time"

	"github.com/jmespath/go-jmespath"
)

// Config controls the resolution waterfall
type Config struct {
	// Folder is the document source folder searched for fuzzy candidates
	Folder string
	// CallTimeout bounds each document source call; zero disables the bound
	CallTimeout time.Duration
	// BatchPause is the delay between events in a batch
	BatchPause time.Duration
	// URLExpressions are JMESPath expressions evaluated against event metadata
	// that yield a transcript URL
	URLExpressions []string
	// TextExpressions yield transcript text embedded in event metadata
	TextExpressions []string
}

// DefaultConfig returns the default waterfall configuration
func DefaultConfig() Config {
	return Config{
		CallTimeout:     15 * time.Second,
		BatchPause:      500 * time.Millisecond,
		URLExpressions: []string{
			"transcript_url",
			"transcriptUrl",
			"transcript_link",
			"tactiq_transcript_url",
			"tactiqTranscriptUrl",
			"meeting_transcript_url",
			"transcript.url",
		},
		TextExpressions: []string{
			"transcript_text",
			"transcriptText",
			"transcript",
			"transcription",
			"tactiq_transcript",
			"meeting_transcript",
			"transcript.text",
		},
	}
}

func compileExpressions(exprs []string) ([]*jmespath.JMESPath, error) {
	compiled := make([]*jmespath.JMESPath, 0, len(exprs))
	for _, expr := range exprs {
		c, err := jmespath.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid metadata expression %q: %w", expr, err)
		}
		compiled = append(compiled, c)
	}
	return compiled, nil
}
