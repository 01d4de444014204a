package vector

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore keeps page embeddings in one Qdrant collection.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger
}

func NewQdrantStore(cfg config.VectorConfig) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Host,
		Port:                   cfg.Port,
		APIKey:                 cfg.APIKey,
		UseTLS:                 cfg.UseTLS,
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}
	return &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		logger:     slog.Default().With("component", "qdrant", "collection", cfg.Collection),
	}, nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// EnsureCollection creates the collection if it does not exist. An existing
// collection is left untouched even if its parameters differ.
func (s *QdrantStore) EnsureCollection(ctx context.Context, name string, size int, distance string) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", name, err)
	}
	if exists {
		return nil
	}
	d, err := parseDistance(distance)
	if err != nil {
		return err
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(size),
			Distance: d,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}
	s.logger.Info("collection created", "name", name, "size", size, "distance", distance)
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(payloadMap(p.Payload)),
		})
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

func (s *QdrantStore) NearestNeighbors(ctx context.Context, vec []float32, threshold float64, limit int, status int) ([]Match, error) {
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		ScoreThreshold: qdrant.PtrOf(float32(threshold)),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchInt("status", int64(status))},
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.collection, err)
	}
	matches := make([]Match, 0, len(points))
	for _, p := range points {
		matches = append(matches, Match{
			ID:      pointIDString(p.GetId()),
			Score:   float64(p.GetScore()),
			Payload: payloadFromValues(p.GetPayload()),
		})
	}
	return matches, nil
}

func parseDistance(name string) (qdrant.Distance, error) {
	switch strings.ToLower(name) {
	case "", "cosine":
		return qdrant.Distance_Cosine, nil
	case "dot":
		return qdrant.Distance_Dot, nil
	case "euclid", "euclidean":
		return qdrant.Distance_Euclid, nil
	case "manhattan":
		return qdrant.Distance_Manhattan, nil
	}
	return 0, fmt.Errorf("unknown distance metric %q", name)
}

func payloadMap(p Payload) map[string]any {
	return map[string]any{
		"page_id":     p.PageID,
		"url":         p.URL,
		"title":       p.Title,
		"description": p.Description,
		"content":     p.Content,
		"status":      p.Status,
		"in_links":    p.InLinks,
		"out_links":   p.OutLinks,
	}
}

func payloadFromValues(v map[string]*qdrant.Value) Payload {
	return Payload{
		PageID:      v["page_id"].GetIntegerValue(),
		URL:         v["url"].GetStringValue(),
		Title:       v["title"].GetStringValue(),
		Description: v["description"].GetStringValue(),
		Content:     v["content"].GetStringValue(),
		Status:      int(v["status"].GetIntegerValue()),
		InLinks:     int(v["in_links"].GetIntegerValue()),
		OutLinks:    int(v["out_links"].GetIntegerValue()),
	}
}

func pointIDString(id *qdrant.PointId) string {
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}
