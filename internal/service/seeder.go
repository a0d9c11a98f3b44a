package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minkyu/hagwon/internal/domain"
	"github.com/minkyu/hagwon/internal/logger"
	"github.com/spf13/viper"
)

// vocabularyEnsurer is the write side of the vocabulary store.
type vocabularyEnsurer interface {
	EnsureQuestionType(ctx context.Context, term *domain.QuestionType) error
	EnsureTopic(ctx context.Context, term *domain.Topic) error
}

// referenceUpserter is the write side of the reference-material store.
type referenceUpserter interface {
	Upsert(ctx context.Context, ref *domain.ReferenceMaterial) error
}

// SeedFile is the on-disk shape of a vocabulary seed definition.
type SeedFile struct {
	Subject       string          `mapstructure:"subject"`
	Topics        []string        `mapstructure:"topics"`
	QuestionTypes []string        `mapstructure:"question_types"`
	References    []SeedReference `mapstructure:"references"`
}

// SeedReference pairs a topic with its grounding material body.
type SeedReference struct {
	Topic string `mapstructure:"topic"`
	Body  string `mapstructure:"body"`
}

// SeederService loads a subject's vocabularies and reference material from a
// seed file into the store. Seeding is idempotent: existing terms are left in
// place, reference bodies are replaced.
type SeederService struct {
	vocab      vocabularyEnsurer
	references referenceUpserter
	logger     *logger.Logger
}

// NewSeederService creates a new seeder.
func NewSeederService(vocab vocabularyEnsurer, references referenceUpserter, log *logger.Logger) *SeederService {
	return &SeederService{vocab: vocab, references: references, logger: log}
}

// SeedFromFile reads the seed definition at path and applies it.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - path: seed file path (yaml, json, or toml by extension).
//
// Returns:
//   - error: non-nil if the file cannot be read or any write fails.
func (s *SeederService) SeedFromFile(ctx context.Context, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	if err := v.Unmarshal(&seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	return s.Seed(ctx, &seed)
}

// Seed applies a seed definition to the store.
func (s *SeederService) Seed(ctx context.Context, seed *SeedFile) error {
	if seed.Subject == "" {
		return fmt.Errorf("seed: subject is required")
	}

	for _, name := range seed.QuestionTypes {
		term := &domain.QuestionType{
			ID:        uuid.New().String(),
			Name:      name,
			Subject:   seed.Subject,
			CreatedAt: time.Now(),
		}
		if err := s.vocab.EnsureQuestionType(ctx, term); err != nil {
			return err
		}
	}

	for _, name := range seed.Topics {
		term := &domain.Topic{
			ID:        uuid.New().String(),
			Name:      name,
			Subject:   seed.Subject,
			CreatedAt: time.Now(),
		}
		if err := s.vocab.EnsureTopic(ctx, term); err != nil {
			return err
		}
	}

	for _, ref := range seed.References {
		if ref.Topic == "" || ref.Body == "" {
			return fmt.Errorf("seed: references need both topic and body")
		}
		record := &domain.ReferenceMaterial{
			ID:        uuid.New().String(),
			Topic:     ref.Topic,
			Subject:   seed.Subject,
			Body:      ref.Body,
			CreatedAt: time.Now(),
		}
		if err := s.references.Upsert(ctx, record); err != nil {
			return err
		}
	}

	s.logger.WithFields(logger.Fields{
		"subject":    seed.Subject,
		"types":      len(seed.QuestionTypes),
		"topics":     len(seed.Topics),
		"references": len(seed.References),
	}).Info("Vocabulary seeded")

	return nil
}
