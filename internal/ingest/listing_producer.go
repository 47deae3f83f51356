// Package ingest publishes listing lifecycle events to the listing
// events topic. The consumer process replays them into the Redis
// snapshot that backs the local search fallback.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/ongopool/internal/models"
)

type ListingProducer struct {
	writer *kafka.Writer
}

func NewListingProducer(brokers []string, topic string) *ListingProducer {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &ListingProducer{writer: w}
}

// PublishListing emits one listing event keyed by listing id.
func (p *ListingProducer) PublishListing(rec models.ListingRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(rec.ID), Value: b})
}

func (p *ListingProducer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
