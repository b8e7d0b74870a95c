package splitter

import (
	"context"
	"strings"

	"github.com/ragworks/rag/models"
)

// Character is the deterministic strategy: it greedily fills each chunk up
// to max_tokens, preferring to cut at the last sentence end inside the
// window when that still leaves at least min_tokens.
type Character struct {
	cfg models.SplitterConfig
}

func (c *Character) Split(ctx context.Context, doc models.Document) ([]models.Chunk, error) {
	tokens := strings.Fields(doc.Content)
	if len(tokens) == 0 {
		return nil, nil
	}

	var chunks []models.Chunk
	start := 0
	for start < len(tokens) {
		end := start + c.cfg.MaxTokens
		if end >= len(tokens) {
			end = len(tokens)
			chunks = append(chunks, chunkFromTokens(tokens[start:end]))
			break
		}

		// Back up to a sentence boundary inside the window, but never so
		// far that the chunk drops below min_tokens.
		cut := end
		for i := end - 1; i >= start+c.cfg.MinTokens; i-- {
			if endsSentence(tokens[i-1]) {
				cut = i
				break
			}
		}
		chunks = append(chunks, chunkFromTokens(tokens[start:cut]))
		start = cut
	}

	return finalize(c.cfg, doc, chunks), nil
}

func chunkFromTokens(tokens []string) models.Chunk {
	return models.Chunk{
		Text:       strings.Join(tokens, " "),
		TokenCount: len(tokens),
	}
}
