// Package cache persists the published vehicle snapshot in Redis. The
// store is the sole source of truth for the serving layer; every key is
// written with a finite expiry so abandoned data ages out on its own.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/redis/go-redis/v9"

	"vonatradar.hu/internal/models"
)

// Store wraps a Redis client with the snapshot read/write operations the
// pipeline and the serving layer need.
type Store struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewStore connects to Redis and verifies the connection with a ping.
func NewStore(addr, password string, db int, logger *slog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		client: client,
		prefix: "vonatradar:",
		logger: logger.With(slog.String("component", "snapshot_store")),
	}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Ping reports whether the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// FlushAll clears the Redis database. Only used on startup in debug mode.
func (s *Store) FlushAll(ctx context.Context) error {
	return s.client.FlushDB(ctx).Err()
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// SetSnapshot atomically overwrites the snapshot and the per-vehicle hash.
// Each publish is a complete, independent overwrite; TTL keeps the store
// from serving data the application has stopped refreshing.
func (s *Store) SetSnapshot(ctx context.Context, snapshot models.Snapshot, ttl time.Duration) error {
	start := time.Now()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	compressed, err := gzipCompress(data)
	if err != nil {
		return fmt.Errorf("compressing snapshot: %w", err)
	}

	vehicleFields := make(map[string]any, len(snapshot.Locations))
	for i := range snapshot.Locations {
		vehicleData, err := json.Marshal(&snapshot.Locations[i])
		if err != nil {
			return fmt.Errorf("marshaling vehicle %s: %w", snapshot.Locations[i].VehicleID, err)
		}
		vehicleFields[snapshot.Locations[i].VehicleID] = vehicleData
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(KeyTrainPositions), compressed, ttl)
	pipe.Del(ctx, s.key(KeyVehicleHash))
	if len(vehicleFields) > 0 {
		pipe.HSet(ctx, s.key(KeyVehicleHash), vehicleFields)
		pipe.Expire(ctx, s.key(KeyVehicleHash), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	s.logger.Debug("snapshot written",
		slog.Int("vehicles", len(snapshot.Locations)),
		slog.Int("raw_bytes", len(data)),
		slog.Int("compressed_bytes", len(compressed)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return nil
}

// GetSnapshot reads the published snapshot. A missing key returns
// (nil, nil): absence of data is not an error.
func (s *Store) GetSnapshot(ctx context.Context) (*models.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(KeyTrainPositions)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	raw, err := gzipDecompress(data)
	if err != nil {
		return nil, fmt.Errorf("decompressing snapshot: %w", err)
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &snapshot, nil
}

// GetVehicle reads one vehicle by id from the per-vehicle hash. A missing
// field returns (nil, nil).
func (s *Store) GetVehicle(ctx context.Context, vehicleID string) (*models.ProcessedVehicle, error) {
	data, err := s.client.HGet(ctx, s.key(KeyVehicleHash), vehicleID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading vehicle %s: %w", vehicleID, err)
	}

	var vehicle models.ProcessedVehicle
	if err := json.Unmarshal(data, &vehicle); err != nil {
		return nil, fmt.Errorf("unmarshaling vehicle %s: %w", vehicleID, err)
	}
	return &vehicle, nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}
