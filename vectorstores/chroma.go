package vectorstores

import (
	"context"
	"encoding/json"
	"fmt"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
)

// Chroma stores vectors in a ChromaDB collection through the v2 API.
type Chroma struct {
	index      string
	dimensions int
	collection chromago.Collection
}

// NewChroma connects to ChromaDB and gets or creates the collection. The
// config map understands "host" (base URL, default local).
func NewChroma(ctx context.Context, config map[string]string, indexName string, dimensions int) (*Chroma, error) {
	var opts []chromago.ClientOption
	if host := config["host"]; host != "" {
		opts = append(opts, chromago.WithBaseURL(host))
	}
	client, err := chromago.NewHTTPClient(opts...)
	if err != nil {
		return nil, storeErr(TypeChroma, KindConnectionFailure, fmt.Errorf("create client: %w", err))
	}

	collection, err := client.GetOrCreateCollection(
		ctx,
		indexName,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewIntAttribute("dimensions", int64(dimensions)),
			),
		),
	)
	if err != nil {
		return nil, storeErr(TypeChroma, KindConnectionFailure, fmt.Errorf("get or create collection %s: %w", indexName, err))
	}
	if dimensions > 0 {
		if err := verifyChromaDimensions(collection.Metadata(), indexName, dimensions); err != nil {
			return nil, err
		}
	}

	return &Chroma{index: indexName, dimensions: dimensions, collection: collection}, nil
}

// verifyChromaDimensions compares the dimensionality recorded in collection
// metadata against the encoder's. Chroma fixes the vector size on first
// insert rather than at creation, so the stored attribute is the only way to
// catch a mismatched binding before records start bouncing.
func verifyChromaDimensions(metadata chromago.CollectionMetadata, indexName string, dimensions int) error {
	if metadata == nil {
		return nil
	}
	stored, ok := metadata.GetInt("dimensions")
	if !ok || stored <= 0 {
		return nil
	}
	if int(stored) != dimensions {
		return storeErr(TypeChroma, KindDimensionMismatch,
			fmt.Errorf("collection %s has dimensionality %d, encoder produces %d", indexName, stored, dimensions))
	}
	return nil
}

func (c *Chroma) Upsert(ctx context.Context, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	ids := make([]chromago.DocumentID, len(records))
	texts := make([]string, len(records))
	embs := make([]embeddings.Embedding, len(records))
	metas := make([]chromago.DocumentMetadata, len(records))
	for i, r := range records {
		if len(r.Vector) != c.dimensions {
			return 0, storeErr(TypeChroma, KindDimensionMismatch,
				fmt.Errorf("record %s has %d dimensions, collection %s expects %d", r.ID, len(r.Vector), c.index, c.dimensions))
		}
		ids[i] = chromago.DocumentID(r.ID)
		texts[i] = r.Metadata["content"]
		embs[i] = embeddings.NewEmbeddingFromFloat32(r.Vector)
		metas[i] = toChromaMetadata(r.Metadata)
	}

	err := c.collection.Upsert(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(embs...),
		chromago.WithMetadatas(metas...),
	)
	if err != nil {
		return 0, storeErr(TypeChroma, KindConnectionFailure, fmt.Errorf("upsert %d records: %w", len(records), err))
	}
	return len(records), nil
}

func (c *Chroma) Query(ctx context.Context, vector []float32, topK int, filter map[string]string, excludeFields []string) ([]Match, error) {
	if len(vector) != c.dimensions {
		return nil, storeErr(TypeChroma, KindDimensionMismatch,
			fmt.Errorf("query vector has %d dimensions, collection %s expects %d", len(vector), c.index, c.dimensions))
	}
	if topK <= 0 {
		topK = 5
	}

	opts := []chromago.CollectionQueryOption{
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(topK),
	}
	if where := chromaWhere(filter); where != nil {
		opts = append(opts, chromago.WithWhereQuery(where))
	}
	results, err := c.collection.Query(ctx, opts...)
	if err != nil {
		return nil, storeErr(TypeChroma, KindConnectionFailure, fmt.Errorf("query collection %s: %w", c.index, err))
	}

	idGroups := results.GetIDGroups()
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(idGroups[0]))
	for i, id := range idGroups[0] {
		var score float32
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			// Chroma reports cosine distance; similarity = 1 - distance.
			score = 1 - float32(distanceGroups[0][i])
		}
		var metadata map[string]string
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) {
			metadata = fromChromaMetadata(metadataGroups[0][i])
		}
		matches = append(matches, Match{
			ID:       string(id),
			Score:    score,
			Metadata: pruneFields(metadata, excludeFields),
		})
	}
	sortMatches(matches)
	return matches, nil
}

func (c *Chroma) Delete(ctx context.Context, filter map[string]string) (int, error) {
	where := chromaWhere(filter)
	if where == nil {
		return 0, storeErr(TypeChroma, KindConnectionFailure, fmt.Errorf("delete requires a filter"))
	}

	// Chroma's delete does not report a count; fetch the matching ids first.
	existing, err := c.collection.Get(ctx, chromago.WithWhereGet(where))
	if err != nil {
		return 0, storeErr(TypeChroma, KindConnectionFailure, fmt.Errorf("get matching records: %w", err))
	}
	count := len(existing.GetIDs())
	if count == 0 {
		return 0, nil
	}

	if err := c.collection.Delete(ctx, chromago.WithWhereDelete(where)); err != nil {
		return 0, storeErr(TypeChroma, KindConnectionFailure, fmt.Errorf("delete records: %w", err))
	}
	return count, nil
}

func chromaWhere(filter map[string]string) chromago.WhereFilter {
	clauses := make([]chromago.WhereFilter, 0, len(filter))
	for k, v := range filter {
		clauses = append(clauses, chromago.EqString(k, v))
	}
	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return clauses[0]
	default:
		return chromago.And(clauses...)
	}
}

func toChromaMetadata(metadata map[string]string) chromago.DocumentMetadata {
	attrs := make([]*chromago.MetaAttribute, 0, len(metadata))
	for k, v := range metadata {
		attrs = append(attrs, chromago.NewStringAttribute(k, v))
	}
	return chromago.NewDocumentMetadata(attrs...)
}

// fromChromaMetadata converts the client's metadata type back to a string
// map. DocumentMetadata exposes no accessor for its values, so a JSON
// round-trip is the supported way out.
func fromChromaMetadata(metadata chromago.DocumentMetadata) map[string]string {
	if metadata == nil {
		return nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil
	}
	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return nil
	}
	out := make(map[string]string, len(asMap))
	for k, v := range asMap {
		out[k] = fmt.Sprint(v)
	}
	return out
}
