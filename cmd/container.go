// Composition root. Owns infrastructure (Redis, SQL, document storage)
// and wires the OCR chain, parse cache, scheduler, parser and job workers.
package main

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr/visionocr"
	"github.com/Abraxas-365/hybridparse/pkg/ai/providers/aianthropic"
	"github.com/Abraxas-365/hybridparse/pkg/ai/providers/aiazure"
	"github.com/Abraxas-365/hybridparse/pkg/ai/providers/aibedrock"
	"github.com/Abraxas-365/hybridparse/pkg/ai/providers/aigemini"
	"github.com/Abraxas-365/hybridparse/pkg/ai/providers/aimistral"
	"github.com/Abraxas-365/hybridparse/pkg/ai/providers/aiopenai"
	"github.com/Abraxas-365/hybridparse/pkg/ai/providers/aitesseract"
	"github.com/Abraxas-365/hybridparse/pkg/authx"
	"github.com/Abraxas-365/hybridparse/pkg/config"
	"github.com/Abraxas-365/hybridparse/pkg/fsx"
	"github.com/Abraxas-365/hybridparse/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/hybridparse/pkg/fsx/fsxs3"
	"github.com/Abraxas-365/hybridparse/pkg/jobx"
	"github.com/Abraxas-365/hybridparse/pkg/jobx/jobxmem"
	"github.com/Abraxas-365/hybridparse/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/hybridparse/pkg/logx"
	"github.com/Abraxas-365/hybridparse/pkg/parsing"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/pagetimeout"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsecache"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsecache/parsecacheredis"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsecache/parsecachesql"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsejob"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsingapi"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/render"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/scheduler"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/tablemerge"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const cacheCleanupInterval = time.Hour

// Container holds shared infrastructure and the parsing services.
type Container struct {
	Config *config.Config

	// Infrastructure
	DB         *sqlx.DB
	Redis      *redis.Client
	FileSystem fsx.PathReader
	S3Client   *s3.Client

	// Parsing
	OCR       *ocr.Client
	Cache     *parsecache.Cache
	Scheduler *scheduler.Scheduler
	Parser    *parsing.Parser
	Jobs      *jobx.Client
	ParseJobs *parsejob.Service
	Handlers  *parsingapi.Handlers

	// Auth is nil when AUTH_JWT_SECRET is unset.
	Auth *authx.Service
}

func NewContainer(ctx context.Context, cfg *config.Config) *Container {
	logx.Info("Initializing application container")

	c := &Container{Config: cfg}

	c.initInfrastructure(ctx)
	c.initOCR(ctx)
	c.initCache(ctx)
	c.initParser()
	c.initJobs()
	c.initAPI()

	logx.Info("Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure: Redis, SQL, document storage
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure(ctx context.Context) {
	if c.Config.Redis.Addr != "" {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Config.Redis.Addr,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		if _, err := c.Redis.Ping(ctx).Result(); err != nil {
			logx.Fatalf("Failed to connect to Redis at %s: %v", c.Config.Redis.Addr, err)
		}
		logx.WithField("addr", c.Config.Redis.Addr).Info("Redis connected")
	}

	backend := c.Config.Cache.Backend
	if c.Config.Cache.Enabled && (backend == "postgres" || backend == "sqlite") {
		db, err := parsecachesql.Open(backend, c.Config.Database.DSN)
		if err != nil {
			logx.Fatalf("Failed to open %s database: %v", backend, err)
		}
		if err := db.PingContext(ctx); err != nil {
			logx.Fatalf("Failed to reach %s database: %v", backend, err)
		}
		c.DB = db
		logx.WithField("driver", backend).Info("Database connected")
	}

	c.initFileStorage(ctx)
}

func (c *Container) initFileStorage(ctx context.Context) {
	storage := c.Config.Storage

	switch storage.Mode {
	case "s3":
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(storage.AWSRegion))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		c.S3Client = s3.NewFromConfig(awsCfg)
		c.FileSystem = fsxs3.NewS3FileSystem(c.S3Client, storage.S3Bucket, "")
		logx.WithFields(logx.Fields{"bucket": storage.S3Bucket, "region": storage.AWSRegion}).
			Info("S3 document source configured")

	case "local":
		localFS, err := fsxlocal.NewLocalFileSystem(storage.LocalPath)
		if err != nil {
			logx.Fatalf("Failed to initialize local file system: %v", err)
		}
		c.FileSystem = localFS
		logx.WithField("path", localFS.GetBasePath()).Info("Local document source configured")

	default:
		logx.Fatalf("Unknown STORAGE_MODE: %s (use 'local' or 's3')", storage.Mode)
	}
}

// ---------------------------------------------------------------------------
// OCR provider chain
// ---------------------------------------------------------------------------

func (c *Container) initOCR(ctx context.Context) {
	providers := buildProviders(ctx, c.Config)
	c.OCR = ocr.NewClient(providers,
		ocr.WithMaxRetries(c.Config.OCR.MaxRetries),
		ocr.WithRetryDelay(c.Config.OCR.RetryDelay),
	)

	var ready []string
	for _, p := range c.OCR.Providers() {
		if p.Available() {
			ready = append(ready, p.Name())
		}
	}
	if len(ready) == 0 {
		logx.Warn("No OCR provider is available; OCR and AUTO scans will fail")
		return
	}
	logx.WithField("providers", strings.Join(ready, ", ")).Info("OCR providers ready")
}

// buildProviders instantiates the providers named in OCR_PROVIDERS. The
// position in that list is the priority.
func buildProviders(ctx context.Context, cfg *config.Config) []ocr.Provider {
	oc := cfg.OCR
	var providers []ocr.Provider

	for i, name := range oc.Providers {
		vopts := []visionocr.Option{visionocr.WithPriority(i), visionocr.WithMaxTokens(oc.MaxTokens)}

		switch strings.ToLower(name) {
		case aimistral.ProviderName:
			providers = append(providers, aimistral.New(oc.Mistral, aimistral.WithPriority(i)))
		case aiopenai.ProviderName:
			providers = append(providers, aiopenai.New(oc.OpenAI, vopts...))
		case aiazure.ProviderName:
			providers = append(providers, aiazure.New(oc.Azure, vopts...))
		case aianthropic.ProviderName:
			providers = append(providers, aianthropic.New(oc.Anthropic, vopts...))
		case aigemini.ProviderName:
			providers = append(providers, aigemini.New(ctx, oc.Gemini, vopts...))
		case aibedrock.ProviderName:
			p, err := aibedrock.New(ctx, oc.Bedrock, cfg.Storage.AWSRegion, vopts...)
			if err != nil {
				logx.WithError(err).Warn("Bedrock OCR provider disabled")
				continue
			}
			providers = append(providers, p)
		case aitesseract.ProviderName:
			providers = append(providers, aitesseract.New(
				aitesseract.WithPriority(i),
				aitesseract.WithLanguages(oc.TesseractLanguages...),
			))
		default:
			logx.WithField("provider", name).Warn("Unknown OCR provider ignored")
		}
	}
	return providers
}

// ---------------------------------------------------------------------------
// Parse cache, scheduler, parser
// ---------------------------------------------------------------------------

func (c *Container) initCache(ctx context.Context) {
	cc := c.Config.Cache
	if !cc.Enabled {
		logx.Info("Parse cache disabled")
		return
	}

	var store parsecache.Store
	switch cc.Backend {
	case "redis":
		if c.Redis == nil {
			logx.Fatalf("PARSECACHE_BACKEND=redis requires REDIS_ADDR")
		}
		store = parsecacheredis.New(c.Redis,
			parsecacheredis.WithPrefix(cc.KeyPrefix),
			parsecacheredis.WithTTL(cc.TTL),
		)
	case "postgres", "sqlite":
		sqlStore := parsecachesql.New(c.DB)
		if err := sqlStore.Migrate(ctx); err != nil {
			logx.Fatalf("Failed to migrate parse cache schema: %v", err)
		}
		store = sqlStore
	case "memory", "":
		store = parsecache.NewMemoryStore()
	default:
		logx.Fatalf("Unknown PARSECACHE_BACKEND: %s", cc.Backend)
	}

	c.Cache = parsecache.New(store, parsecache.WithTTL(cc.TTL))
	logx.WithFields(logx.Fields{"backend": cc.Backend, "ttl": cc.TTL}).Info("Parse cache configured")
}

func (c *Container) initParser() {
	pc := c.Config.Parsing

	schedOpts := []scheduler.Option{scheduler.WithTimeoutModel(pagetimeout.New())}
	if c.Cache != nil {
		schedOpts = append(schedOpts, scheduler.WithCache(c.Cache))
	}
	schedCfg := scheduler.DefaultConfig()
	schedCfg.Retries = pc.MaxPageRetries
	schedCfg.Parallelism = pc.ParallelPages
	schedCfg.PageTimeout = pc.PageTimeout
	schedCfg.MaxTotalTimeout = pc.MaxTotalTimeout
	schedCfg.TimeoutMultiplier = pc.TimeoutMultiplier
	schedCfg.TimeoutBuffer = pc.TimeoutBuffer
	schedCfg.DynamicTimeout = pc.EnableDynamicTimeout
	c.Scheduler = scheduler.New(schedCfg, c.OCR, schedOpts...)

	parserOpts := []parsing.Option{
		parsing.WithSource(c.FileSystem),
		parsing.WithRenderer(render.New(
			render.WithBinary(pc.RendererPath),
			render.WithDPI(pc.RenderDPI),
			render.WithParallelism(pc.ParallelPages),
		)),
		parsing.WithMerger(tablemerge.New(tablemerge.Config{
			Enabled:          pc.EnableTableMerge,
			HeaderSimilarity: pc.TableMergeSimilarity,
			BottomRatio:      pc.TableMergeBottom,
			TopRatio:         pc.TableMergeTop,
		})),
	}
	if c.Cache != nil {
		parserOpts = append(parserOpts, parsing.WithCache(c.Cache))
	}

	c.Parser = parsing.New(parsing.Config{
		ForceOCR:             pc.ForceOCR,
		EnableHybrid:         pc.EnableHybrid,
		ConfidenceThreshold:  pc.ConfidenceThreshold,
		EnableTableMerge:     pc.EnableTableMerge,
		EnableTableDetection: pc.EnableTableDetection,
	}, c.Scheduler, parserOpts...)
}

// ---------------------------------------------------------------------------
// Async parse jobs and HTTP handlers
// ---------------------------------------------------------------------------

func (c *Container) initJobs() {
	jc := c.Config.Jobx
	if !jc.Enabled {
		logx.Info("Async parse jobs disabled")
		return
	}

	var queue jobx.Queue
	if c.Redis != nil {
		queue = jobxredis.NewRedisQueue(c.Redis)
	} else {
		logx.Warn("REDIS_ADDR unset; parse jobs use an in-process queue and are lost on restart")
		queue = jobxmem.New()
	}

	c.Jobs = jobx.NewClient(queue,
		jobx.WithQueues(jc.Queues...),
		jobx.WithConcurrency(jc.Concurrency),
		jobx.WithPollInterval(jc.PollInterval),
		jobx.WithShutdownTimeout(jc.ShutdownTimeout),
		jobx.WithDequeueTimeout(jc.DequeueTimeout),
		jobx.WithDefaultRetryDelay(jc.DefaultRetryDelay),
		jobx.WithDefaultMaxRetries(jc.MaxRetries),
	)
	c.ParseJobs = parsejob.NewService(c.Jobs, c.Parser, jc.Queues[0])
}

func (c *Container) initAPI() {
	var (
		jobs  parsingapi.Jobs
		cache parsingapi.Cache
	)
	if c.ParseJobs != nil {
		jobs = c.ParseJobs
	}
	if c.Cache != nil {
		cache = c.Cache
	}
	c.Handlers = parsingapi.NewHandlers(c.Parser, jobs, cache)

	if c.Config.Auth.JWTSecret != "" {
		c.Auth = authx.NewService(c.Config.Auth.JWTSecret, c.Config.Auth.Issuer, 0)
		logx.Info("Bearer-token auth enabled on /api/v1")
	} else {
		logx.Warn("AUTH_JWT_SECRET unset; /api/v1 is unauthenticated")
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// StartBackgroundServices runs the job workers and the periodic cache
// cleanup until ctx is cancelled. The returned channel closes once both
// have stopped.
func (c *Container) StartBackgroundServices(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	workersDone := make(chan struct{})

	go func() {
		defer close(workersDone)
		if c.Jobs == nil {
			return
		}
		if err := c.Jobs.Start(ctx); err != nil {
			logx.WithError(err).Error("Parse job workers stopped with error")
		}
	}()

	go func() {
		defer close(done)
		if c.Cache != nil {
			c.runCacheCleanup(ctx)
		}
		<-workersDone
	}()
	return done
}

func (c *Container) runCacheCleanup(ctx context.Context) {
	ticker := time.NewTicker(cacheCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Cache.Cleanup(ctx); err != nil {
				logx.WithError(err).Warn("Parse cache cleanup failed")
			}
		}
	}
}

func (c *Container) Cleanup() {
	logx.Info("Cleaning up resources")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		}
	}
}
