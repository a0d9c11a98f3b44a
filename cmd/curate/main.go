package main

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/minkyu/hagwon/internal/config"
	"github.com/minkyu/hagwon/internal/domain"
	"github.com/minkyu/hagwon/internal/logger"
	"github.com/minkyu/hagwon/internal/report"
	"github.com/minkyu/hagwon/internal/repository"
	"github.com/minkyu/hagwon/internal/service"
	"github.com/minkyu/hagwon/internal/source"
	"github.com/minkyu/hagwon/internal/storage"
	"gorm.io/gorm"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "hagwon-curate",
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Parse command line flags
	mode := flag.String("mode", "extract", "Pipeline mode: extract, generate, sample, seed")
	configPath := flag.String("config", "", "Path to config file")
	subject := flag.String("subject", "", "Subject of the curation run")
	topic := flag.String("topic", "", "Topic filter (required for generate)")
	types := flag.String("types", "", "Comma-separated question type names to filter by")
	difficulty := flag.String("difficulty", "", "Difficulty mode for generation: easy, medium, hard, mixed")
	count := flag.Int("count", 5, "Number of questions to generate")
	limit := flag.Int("limit", 0, "Flat sample size (sample mode) or exemplar count (generate mode)")
	easy := flag.Int("easy", 0, "Stratified sample count from the easy band (difficulty 1-2)")
	medium := flag.Int("medium", 0, "Stratified sample count from the medium band (difficulty 3)")
	hard := flag.Int("hard", 0, "Stratified sample count from the hard band (difficulty 4-5)")
	sourceDir := flag.String("source-dir", "", "Directory of scanned pages to extract from")
	setTopic := flag.String("set-topic", "", "Compose the run's questions into a set with this topic")
	setDesc := flag.String("set-desc", "", "Description for the composed set")
	force := flag.Bool("force", false, "Re-process pages whose content hash is already curated")
	seed := flag.Int64("seed", 0, "Random seed for sampling; 0 uses the current time")
	seedFile := flag.String("seed-file", "", "Vocabulary seed file for -mode seed")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	applyFlagOverrides(cfg, *subject, *topic, *types, *difficulty, *limit, *easy, *medium, *hard, *sourceDir, *setTopic, *setDesc)

	if cfg.Curation.Subject == "" {
		appLogger.Fatal("A subject is required (flag -subject or curation.subject)")
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	ctx = logger.SetRunID(ctx, uuid.New().String())

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	questionRepo := repository.NewQuestionRepository(db)
	vocabRepo := repository.NewVocabularyRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)
	setRepo := repository.NewSetRepository(db)
	reports := report.NewWriter(cfg.Curation.ReportDir)

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(rngSeed))

	sampler := service.NewSamplerService(questionRepo, vocabRepo, rng, appLogger)
	composer := service.NewComposerService(setRepo, appLogger)

	switch *mode {
	case "extract":
		runExtract(ctx, cfg, appLogger, questionRepo, vocabRepo, composer, reports, *force)
	case "generate":
		runGenerate(ctx, cfg, appLogger, questionRepo, vocabRepo, referenceRepo, sampler, composer, reports, *count)
	case "sample":
		runSample(ctx, cfg, appLogger, sampler, composer, reports)
	case "seed":
		if *seedFile == "" {
			appLogger.Fatal("Seeding requires a seed file (flag -seed-file)")
		}
		seeder := service.NewSeederService(vocabRepo, referenceRepo, appLogger)
		if err := seeder.SeedFromFile(ctx, *seedFile); err != nil {
			appLogger.WithError(err).Fatal("Seeding failed")
		}
	default:
		appLogger.WithField("mode", *mode).Fatal("Unknown mode")
	}
}

// applyFlagOverrides folds non-empty flag values over the loaded curation
// config so flags win without losing file/env defaults.
func applyFlagOverrides(cfg *config.Config, subject, topic, types, difficulty string, limit, easy, medium, hard int, sourceDir, setTopic, setDesc string) {
	c := &cfg.Curation
	if subject != "" {
		c.Subject = subject
	}
	if topic != "" {
		c.Topic = topic
	}
	if types != "" {
		var names []string
		for _, name := range strings.Split(types, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				names = append(names, trimmed)
			}
		}
		c.QuestionTypes = names
	}
	if difficulty != "" {
		c.Difficulty = difficulty
	}
	if limit > 0 {
		c.Limit = limit
	}
	if easy > 0 || medium > 0 || hard > 0 {
		c.Distribution = config.DistributionConfig{Easy: easy, Medium: medium, Hard: hard}
	}
	if sourceDir != "" {
		c.SourceDir = sourceDir
	}
	if setTopic != "" {
		c.SetTopic = setTopic
	}
	if setDesc != "" {
		c.SetDesc = setDesc
	}
}

// newVectorIndex connects the Qdrant mirror sized to the embedding config.
func newVectorIndex(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) *repository.QdrantRepository {
	qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
		Host:            cfg.Qdrant.Host,
		Port:            cfg.Qdrant.Port,
		Collection:      cfg.Qdrant.Collection,
		APIKey:          cfg.Qdrant.APIKey,
		UseTLS:          cfg.Qdrant.UseTLS,
		VectorDimension: cfg.Embedding.Dimensions,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize Qdrant repository")
	}
	if err := qdrantRepo.EnsureCollection(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure Qdrant collection")
	}
	return qdrantRepo
}

// newArchive builds the optional page archive.
func newArchive(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) storage.Archive {
	if !cfg.Storage.Enabled {
		return nil
	}

	s3Archive, err := storage.NewS3Archive(&storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize page archive")
	}
	if err := s3Archive.EnsureBucket(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure archive bucket")
	}
	return s3Archive
}

func runExtract(
	ctx context.Context,
	cfg *config.Config,
	appLogger *logger.Logger,
	questionRepo *repository.QuestionRepository,
	vocabRepo *repository.VocabularyRepository,
	composer *service.ComposerService,
	reports *report.Writer,
	force bool,
) {
	if err := cfg.Extractor.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid extractor config")
	}
	if err := cfg.Embedding.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid embedding config")
	}

	qdrantRepo := newVectorIndex(ctx, cfg, appLogger)
	defer qdrantRepo.Close()
	archive := newArchive(ctx, cfg, appLogger)

	extractor := service.NewExtractorService(service.NewOpenAIClient(&cfg.Extractor), appLogger)
	embedding := service.NewEmbeddingService(&cfg.Embedding)
	curator := service.NewCuratorService(questionRepo, vocabRepo, qdrantRepo, archive, extractor, embedding, reports, appLogger)

	pages, err := source.ScanDir(cfg.Curation.SourceDir)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to scan source directory")
	}
	if len(pages) == 0 {
		appLogger.WithField("dir", cfg.Curation.SourceDir).Info("No pages found, nothing to do")
		return
	}

	stats, persisted, err := curator.RunExtraction(ctx, pages, &service.ExtractOptions{
		Subject: cfg.Curation.Subject,
		Force:   force,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Extraction run failed")
	}

	composeSet(ctx, cfg, appLogger, composer, persisted)

	appLogger.WithFields(logger.Fields{
		"pages":     stats.PagesFound,
		"skipped":   stats.PagesSkipped,
		"succeeded": stats.Succeeded,
		"failed":    stats.Failed,
		"persisted": len(persisted),
	}).Info("Extraction completed")
}

func runGenerate(
	ctx context.Context,
	cfg *config.Config,
	appLogger *logger.Logger,
	questionRepo *repository.QuestionRepository,
	vocabRepo *repository.VocabularyRepository,
	referenceRepo *repository.ReferenceRepository,
	sampler *service.SamplerService,
	composer *service.ComposerService,
	reports *report.Writer,
	count int,
) {
	if cfg.Curation.Topic == "" {
		appLogger.Fatal("Generation requires a topic (flag -topic)")
	}
	if err := cfg.Generator.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid generator config")
	}
	if err := cfg.Embedding.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid embedding config")
	}

	reference, err := referenceRepo.GetByTopic(ctx, cfg.Curation.Topic, cfg.Curation.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			appLogger.WithField("topic", cfg.Curation.Topic).Fatal("No reference material for topic; add it before generating")
		}
		appLogger.WithError(err).Fatal("Failed to load reference material")
	}

	questionTypes, err := vocabRepo.ListQuestionTypes(ctx, cfg.Curation.Subject)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load question types")
	}
	if len(questionTypes) == 0 {
		appLogger.WithField("subject", cfg.Curation.Subject).Fatal("Subject has no question types; seed the vocabulary first")
	}
	typeResolver := service.NewQuestionTypeResolver(questionTypes)

	typeNames := cfg.Curation.QuestionTypes
	if len(typeNames) == 0 {
		typeNames = typeResolver.Names()
	} else {
		for _, name := range typeNames {
			if _, ok := typeResolver.Resolve(name); !ok {
				appLogger.WithField("type", name).Fatal("Unknown question type for subject")
			}
		}
	}

	// Exemplars calibrate style; generation proceeds without them on a
	// fresh bank.
	exemplars, err := sampler.Sample(ctx, service.SampleRequest{
		Subject: cfg.Curation.Subject,
		Topic:   cfg.Curation.Topic,
		Limit:   cfg.Curation.Limit,
	})
	if err != nil {
		if !errors.Is(err, service.ErrNoMatches) {
			appLogger.WithError(err).Fatal("Failed to sample exemplars")
		}
		appLogger.Info("No exemplars in the bank, generating without calibration")
	}

	generator := service.NewGeneratorService(service.NewOpenAIClient(&cfg.Generator), appLogger)
	generated, err := generator.Generate(ctx, service.GenerationRequest{
		Subject:       cfg.Curation.Subject,
		Topic:         cfg.Curation.Topic,
		Count:         count,
		Difficulty:    cfg.Curation.Difficulty,
		Reference:     reference.Body,
		Exemplars:     exemplars,
		QuestionTypes: typeNames,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Generation failed")
	}

	questions := make([]domain.Question, 0, len(generated))
	for _, g := range generated {
		typeID, _ := typeResolver.Resolve(g.QuestionType)
		questions = append(questions, g.ToDomain(cfg.Curation.Subject, typeID, generator.Model()))
	}

	// Review before commit.
	path, err := reports.WriteQuestions("generate", "Generation review ("+cfg.Curation.Topic+")", questions)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to write review report")
	}
	appLogger.WithField("report", path).Info("Review report written")

	qdrantRepo := newVectorIndex(ctx, cfg, appLogger)
	defer qdrantRepo.Close()
	embedding := service.NewEmbeddingService(&cfg.Embedding)
	curator := service.NewCuratorService(questionRepo, vocabRepo, qdrantRepo, nil, nil, embedding, reports, appLogger)

	persisted, err := curator.PersistQuestions(ctx, questions)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to persist generated questions")
	}

	composeSet(ctx, cfg, appLogger, composer, persisted)

	appLogger.WithFields(logger.Fields{
		"topic":     cfg.Curation.Topic,
		"generated": len(generated),
		"persisted": len(persisted),
	}).Info("Generation completed")
}

func runSample(
	ctx context.Context,
	cfg *config.Config,
	appLogger *logger.Logger,
	sampler *service.SamplerService,
	composer *service.ComposerService,
	reports *report.Writer,
) {
	req := service.SampleRequest{
		Subject:       cfg.Curation.Subject,
		Topic:         cfg.Curation.Topic,
		QuestionTypes: cfg.Curation.QuestionTypes,
		Limit:         cfg.Curation.Limit,
	}
	if !cfg.Curation.Distribution.IsZero() {
		req.Distribution = &service.Distribution{
			Easy:   cfg.Curation.Distribution.Easy,
			Medium: cfg.Curation.Distribution.Medium,
			Hard:   cfg.Curation.Distribution.Hard,
		}
	}

	sampled, err := sampler.Sample(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrNoMatches) {
			appLogger.Info("No questions matched the sampling filters")
			return
		}
		appLogger.WithError(err).Fatal("Sampling failed")
	}

	path, err := reports.WriteQuestions("sample", "Sample review ("+cfg.Curation.Subject+")", sampled)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to write review report")
	}
	appLogger.WithField("report", path).Info("Review report written")

	composeSet(ctx, cfg, appLogger, composer, sampled)

	appLogger.WithFields(logger.Fields{
		"sampled": len(sampled),
	}).Info("Sampling completed")
}

// composeSet links the run's questions into a set when a set topic was given.
func composeSet(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, composer *service.ComposerService, questions []domain.Question) {
	if cfg.Curation.SetTopic == "" || len(questions) == 0 {
		return
	}

	set, err := composer.Compose(ctx, service.SetIdentity{
		Topic:       cfg.Curation.SetTopic,
		Description: cfg.Curation.SetDesc,
		Subject:     cfg.Curation.Subject,
	}, questions)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to compose question set")
	}
	appLogger.WithFields(logger.Fields{
		"set_id": set.ID,
		"count":  len(questions),
	}).Info("Question set composed")
}
