package interfaces

import (
	"context"
	"errors"

	"github.com/autodidact-ai/curator/internal/models"
)

// ErrNoTranscript marks the terminal-skip outcome: the content exists but has
// no transcript (captions disabled, unavailable). Retrying cannot change it.
var ErrNoTranscript = errors.New("transcript unavailable for content")

// Transcript is a successful fetch result.
type Transcript struct {
	Text     string
	Metadata models.ContentMetadata
}

// TranscriptSource is the external scraping backend contract. endpoint is the
// egress path to use; nil means direct connection. Implementations classify
// outcomes tri-state: success, ErrNoTranscript (terminal), or any other error
// (transient).
type TranscriptSource interface {
	FetchTranscript(ctx context.Context, url string, endpoint *models.ProxyEndpoint) (*Transcript, error)
}
