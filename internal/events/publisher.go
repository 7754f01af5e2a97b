// Package events publishes pipeline lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ai-clinical-scribe-service/internal/config"
	"ai-clinical-scribe-service/internal/observability/metrics"
)

// Publisher writes transcription and note events to separate Kafka topics.
// When Kafka is disabled it runs in log-only mode: events are logged and
// counted but not written anywhere.
type Publisher struct {
	writerTranscriptions *kafka.Writer
	writerNotes          *kafka.Writer
	principal            string
	topicTranscriptions  string
	topicNotes           string
	enabled              bool
	metrics              *metrics.Metrics
}

// New creates a Kafka publisher from the configured brokers and topics.
func New(cfg config.KafkaConfig) *Publisher {
	m := metrics.DefaultMetrics

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:           cfg.Principal,
			topicTranscriptions: cfg.TopicTranscriptions,
			topicNotes:          cfg.TopicNotes,
			enabled:             false,
			metrics:             m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTranscriptions", cfg.TopicTranscriptions).
		Str("topicNotes", cfg.TopicNotes).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerTranscriptions: newWriter(cfg.TopicTranscriptions),
		writerNotes:          newWriter(cfg.TopicNotes),
		principal:            cfg.Principal,
		topicTranscriptions:  cfg.TopicTranscriptions,
		topicNotes:           cfg.TopicNotes,
		enabled:              true,
		metrics:              m,
	}
}

// PublishTranscription publishes a transcription lifecycle event, keyed by
// transcription id.
func (p *Publisher) PublishTranscription(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerTranscriptions, p.topicTranscriptions, "transcription", key, event)
}

// PublishNote publishes a clinical note lifecycle event, keyed by note id.
func (p *Publisher) PublishNote(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerNotes, p.topicNotes, "note", key, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTranscriptions != nil {
		if e := p.writerTranscriptions.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing transcriptions writer")
			err = e
		}
	}
	if p.writerNotes != nil {
		if e := p.writerNotes.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing notes writer")
			err = e
		}
	}
	return err
}
