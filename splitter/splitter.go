// Package splitter turns parsed document text into bounded, ordered chunks.
//
// Two strategies share one contract: character splitting is deterministic
// greedy token accumulation; semantic splitting embeds rolling sentence
// windows and cuts where consecutive windows diverge most. Token counting
// is whitespace-based throughout, and a chunk never splits mid-token.
package splitter

import (
	"context"
	"regexp"
	"strings"

	"github.com/ragworks/rag/encoders"
	"github.com/ragworks/rag/models"
)

// Splitter converts a document into an ordered sequence of chunks. Every
// non-final chunk's token count is within [min_tokens, max_tokens]; only the
// trailing remainder may fall short of min_tokens.
type Splitter interface {
	Split(ctx context.Context, doc models.Document) ([]models.Chunk, error)
}

// New selects the strategy named by cfg. The semantic strategy needs an
// encoder to detect topic boundaries; the character strategy ignores it.
func New(cfg models.SplitterConfig, enc encoders.Encoder) (Splitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Name {
	case models.SplitterCharacter:
		return &Character{cfg: cfg}, nil
	case models.SplitterSemantic:
		if enc == nil {
			return nil, &models.ConfigError{Field: "document_processor.name", Reason: "semantic splitting requires an encoder"}
		}
		return &Semantic{cfg: cfg, encoder: enc}, nil
	default:
		return nil, &models.ConfigError{Field: "document_processor.name", Reason: "unknown splitter " + cfg.Name}
	}
}

var sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?]+)`)

// splitSentences cuts text into sentences, keeping any trailing run without
// terminal punctuation as a final sentence.
func splitSentences(text string) []string {
	locs := sentencePattern.FindAllStringIndex(text, -1)
	var sentences []string
	last := 0
	for _, loc := range locs {
		s := strings.TrimSpace(text[loc[0]:loc[1]])
		if s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// endsSentence reports whether a token closes a sentence.
func endsSentence(token string) bool {
	trimmed := strings.TrimRight(token, `"')]`+"`")
	return strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "!") || strings.HasSuffix(trimmed, "?")
}

// finalize assigns ids and applies the configured title/summary prefix.
// The prefix is retrieval context, not pipeline content, so it never counts
// toward a chunk's token accounting.
func finalize(cfg models.SplitterConfig, doc models.Document, chunks []models.Chunk) []models.Chunk {
	var prefix string
	if cfg.PrefixTitle && doc.Title != "" {
		prefix = doc.Title + "\n"
	}
	if cfg.PrefixSummary {
		if summary := Summarize(doc.Content, 3); summary != "" {
			prefix += summary + "\n"
		}
	}
	if prefix != "" {
		prefix += "\n"
	}

	for i := range chunks {
		chunks[i].DocumentID = doc.ID
		chunks[i].Index = i
		chunks[i].ID = models.ChunkID(doc.ID, i)
		if prefix != "" {
			chunks[i].Text = prefix + chunks[i].Text
		}
	}
	return chunks
}
