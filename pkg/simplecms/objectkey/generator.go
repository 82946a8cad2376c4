// Package objectkey generates blob-store keys for uploaded assets.
package objectkey

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates a blob-store key for an asset upload. The key
	// is the locator stored in the record's asset field.
	GenerateKey(entity, field, filename string) string
}

// FlatGenerator produces single-directory keys, matching the upload layout
// of older deployments: uploads/{entity}/{uuid}_{filename}.
type FlatGenerator struct{}

func NewFlatGenerator() *FlatGenerator {
	return &FlatGenerator{}
}

func (g *FlatGenerator) GenerateKey(entity, field, filename string) string {
	id := uuid.New().String()
	if filename == "" {
		return fmt.Sprintf("uploads/%s/%s", entity, id)
	}
	return fmt.Sprintf("uploads/%s/%s_%s", entity, id, sanitizeFilename(filename))
}

// ShardedGenerator spreads keys over two-character shard directories so no
// single prefix accumulates millions of objects:
// uploads/{entity}/{field}/{shard}/{rest}_{filename}.
type ShardedGenerator struct {
	// ShardLength controls how many characters form the shard directory.
	ShardLength int
}

func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{ShardLength: 2}
}

func (g *ShardedGenerator) GenerateKey(entity, field, filename string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")

	shardLen := g.ShardLength
	if shardLen < 1 || shardLen >= len(id) {
		shardLen = 2
	}
	shard := id[:shardLen]
	rest := id[shardLen:]

	name := rest
	if filename != "" {
		name = fmt.Sprintf("%s_%s", rest, sanitizeFilename(filename))
	}

	return fmt.Sprintf("uploads/%s/%s/%s/%s", entity, field, shard, name)
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeFilename keeps only key-safe characters from a client filename.
func sanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, " ", "_")
	filename = unsafeKeyChars.ReplaceAllString(filename, "")
	if len(filename) > 100 {
		filename = filename[len(filename)-100:]
	}
	return filename
}
