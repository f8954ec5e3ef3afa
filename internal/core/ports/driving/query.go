package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// QueryService answers questions from the indexed documents.
type QueryService interface {
	// Answer retrieves the topK most similar chunks and generates a
	// grounded answer. It never returns an error: failures are reported
	// through domain.Answer.Error. topK <= 0 selects the configured default.
	Answer(ctx context.Context, question string, topK int) domain.Answer
}
