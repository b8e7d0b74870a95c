package splitter

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ragworks/rag/encoders"
	"github.com/ragworks/rag/models"
)

// Semantic cuts chunks at topic shifts. It embeds a rolling window of
// sentences, measures the cosine distance between consecutive window
// embeddings, and places each boundary at the highest-discontinuity sentence
// end whose running token count lies in [min_tokens, max_tokens]. The
// earliest candidate wins ties, so output is deterministic for identical
// input and embeddings. When no sentence end falls in range the strategy
// hard-cuts at max_tokens.
type Semantic struct {
	cfg     models.SplitterConfig
	encoder encoders.Encoder
}

func (s *Semantic) Split(ctx context.Context, doc models.Document) ([]models.Chunk, error) {
	sentences := splitSentences(doc.Content)
	if len(sentences) == 0 {
		return nil, nil
	}

	discontinuity, err := s.discontinuities(ctx, sentences)
	if err != nil {
		return nil, err
	}

	sentTokens := make([]int, len(sentences))
	for i, sent := range sentences {
		sentTokens[i] = len(strings.Fields(sent))
	}

	var chunks []models.Chunk
	start := 0
	for start < len(sentences) {
		boundary, hardCut := s.pickBoundary(sentences, sentTokens, discontinuity, start)
		if hardCut {
			// One run of text too long for any sentence boundary in range:
			// cut at exactly max_tokens and push the remainder back as the
			// next sentence.
			taken, rest := takeTokens(sentences[start:], s.cfg.MaxTokens)
			chunks = append(chunks, chunkFromTokens(taken))
			consumed := start + rest.consumedSentences
			if rest.remainder != "" {
				sentences[consumed] = rest.remainder
				sentTokens[consumed] = len(strings.Fields(rest.remainder))
			}
			start = consumed
			continue
		}
		text := strings.Join(sentences[start:boundary+1], " ")
		chunks = append(chunks, models.Chunk{Text: text, TokenCount: sumInts(sentTokens[start : boundary+1])})
		start = boundary + 1
	}

	return finalize(s.cfg, doc, chunks), nil
}

// pickBoundary returns the sentence index ending the next chunk, or
// hardCut=true when no sentence boundary lands inside [min, max] tokens.
func (s *Semantic) pickBoundary(sentences []string, sentTokens, discontinuity []int16, start int) (int, bool) {
	cum := 0
	best := -1
	var bestScore int16 = -1
	for j := start; j < len(sentences); j++ {
		cum += sentTokens[j]
		if cum > s.cfg.MaxTokens {
			break
		}
		if j == len(sentences)-1 {
			// Final remainder fits below max; take it whole even when it
			// is shorter than min_tokens.
			return j, false
		}
		if cum >= s.cfg.MinTokens && discontinuity[j] > bestScore {
			bestScore = discontinuity[j]
			best = j
		}
	}
	if best < 0 {
		return 0, true
	}
	return best, false
}

// discontinuities embeds the rolling windows and scores each inter-sentence
// boundary. Scores are quantized so strict greater-than comparison keeps
// tie-breaks exact and the earliest boundary deterministic.
func (s *Semantic) discontinuities(ctx context.Context, sentences []string) ([]int16, error) {
	if len(sentences) < 2 {
		return make([]int16, len(sentences)), nil
	}

	windows := make([]string, len(sentences))
	for i := range sentences {
		lo := i - s.cfg.RollingWindowSize + 1
		if lo < 0 {
			lo = 0
		}
		windows[i] = strings.Join(sentences[lo:i+1], " ")
	}

	vectors := make([][]float32, 0, len(windows))
	batch := s.encoder.MaxBatch()
	for off := 0; off < len(windows); off += batch {
		end := off + batch
		if end > len(windows) {
			end = len(windows)
		}
		vecs, err := s.encoder.Embed(ctx, windows[off:end])
		if err != nil {
			return nil, fmt.Errorf("embed sentence windows: %w", err)
		}
		vectors = append(vectors, vecs...)
	}

	scores := make([]int16, len(sentences))
	for i := 0; i+1 < len(vectors); i++ {
		scores[i] = quantize(1 - cosineSimilarity(vectors[i], vectors[i+1]))
	}
	return scores, nil
}

// quantize maps a distance in [0,2] to a stable integer scale.
func quantize(d float64) int16 {
	if d < 0 {
		d = 0
	}
	if d > 2 {
		d = 2
	}
	return int16(math.Round(d * 10000))
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sumInts(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

type tokenRemainder struct {
	consumedSentences int
	remainder         string
}

// takeTokens consumes up to limit whitespace tokens from the sentence run,
// reporting how many whole sentences were used and the unconsumed tail of a
// partially used one.
func takeTokens(sentences []string, limit int) ([]string, tokenRemainder) {
	var taken []string
	for i, sent := range sentences {
		words := strings.Fields(sent)
		need := limit - len(taken)
		if need == 0 {
			return taken, tokenRemainder{consumedSentences: i}
		}
		if len(words) <= need {
			taken = append(taken, words...)
			continue
		}
		taken = append(taken, words[:need]...)
		return taken, tokenRemainder{
			consumedSentences: i,
			remainder:         strings.Join(words[need:], " "),
		}
	}
	return taken, tokenRemainder{consumedSentences: len(sentences)}
}
