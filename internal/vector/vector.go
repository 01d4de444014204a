// Package vector serves nearest-neighbour search over page embeddings and
// reorders near-tied matches by link authority.
package vector

import (
	"context"
	"crypto/sha256"

	"github.com/google/uuid"
)

// Payload is the page metadata stored beside each vector.
type Payload struct {
	PageID      int64  `json:"page_id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content,omitempty"`
	Status      int    `json:"status"`
	InLinks     int    `json:"in_links"`
	OutLinks    int    `json:"out_links"`
}

type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

type Match struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Payload Payload `json:"payload"`
}

type Store interface {
	EnsureCollection(ctx context.Context, name string, size int, distance string) error
	Upsert(ctx context.Context, points []Point) error
	// NearestNeighbors returns up to limit matches scoring at least threshold
	// whose payload status equals status.
	NearestNeighbors(ctx context.Context, vec []float32, threshold float64, limit int, status int) ([]Match, error)
	Ping(ctx context.Context) error
}

// PointID derives a stable point id from a page URL: the first 16 bytes of
// its SHA-256 formatted as a UUID.
func PointID(url string) string {
	sum := sha256.Sum256([]byte(url))
	id, _ := uuid.FromBytes(sum[:16])
	return id.String()
}
