// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator provides the KSI validation orchestration service
// for AleutianSentinel.
//
// This package contains the main service type that coordinates all
// components: HTTP routing, the DynamoDB-backed tenant configuration and
// execution record stores, the per-category Lambda validator invoker, the
// run coordinator, and observability infrastructure.
//
// # Usage
//
//	cfg := orchestrator.Config{Port: 12310}
//	svc, err := orchestrator.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/events"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/invoker"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/middleware"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/observability"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/routes"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/services"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/store"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the orchestrator service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	//
	// # Limitations
	//
	//   - Should not be used to modify routes after construction
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds orchestrator configuration options.
//
// All fields are optional with defaults applied by New(). Values can be
// populated from environment variables, a YAML config file via
// LoadConfigFile, or programmatically for testing.
type Config struct {
	// Port is the HTTP server port. Default: 12310
	Port int `yaml:"port"`

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "sentinel-otel-collector:4317"
	OTelEndpoint string `yaml:"otel_endpoint"`

	// DisableMetrics turns off Prometheus metrics registration. Metrics
	// are enabled by default.
	DisableMetrics bool `yaml:"disable_metrics"`

	// AWSRegion is the region for the DynamoDB and Lambda clients.
	// Default: "us-east-1"
	AWSRegion string `yaml:"aws_region"`

	// AWSEndpoint overrides the AWS service endpoint, for DynamoDB Local
	// and LocalStack development setups. Empty uses the real services.
	AWSEndpoint string `yaml:"aws_endpoint"`

	// AWSAccessKeyID / AWSSecretAccessKey switch to static credentials.
	// Empty uses the default credential chain.
	AWSAccessKeyID     string `yaml:"aws_access_key_id"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key"`

	// ConfigTable is the tenant KSI configuration table.
	// Default: "sentinel-tenant-ksi-configs"
	ConfigTable string `yaml:"config_table"`

	// ExecutionTable is the execution record table.
	// Default: "sentinel-ksi-executions"
	ExecutionTable string `yaml:"execution_table"`

	// ExecutionIndex is the tenant/timestamp GSI for newest-first listing.
	// Default: "tenant-timestamp-index"
	ExecutionIndex string `yaml:"execution_index"`

	// ValidatorPrefix and Environment form the validator function naming
	// convention "{prefix}-{category}-{environment}".
	// Defaults: "sentinel-validator", "dev"
	ValidatorPrefix string `yaml:"validator_prefix"`
	Environment     string `yaml:"environment"`

	// MaxParallelValidators caps concurrent category invocations.
	// Default: 5
	MaxParallelValidators int `yaml:"max_parallel_validators"`

	// TriggerRatePerMinute / TriggerBurst shape the per-tenant trigger
	// rate limit. TriggerRatePerMinute <= 0 disables limiting.
	// Defaults: 6 per minute, burst 3.
	TriggerRatePerMinute float64 `yaml:"trigger_rate_per_minute"`
	TriggerBurst         int     `yaml:"trigger_burst"`

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	// Default: uses GIN_MODE env var or "debug"
	GinMode string `yaml:"gin_mode"`
}

// LoadConfigFile reads a YAML configuration file into a Config. Fields
// absent from the file stay zero and pick up defaults in New().
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// Thread-safe after construction; all fields are read-only once New()
// returns.
type service struct {
	config        Config
	router        *gin.Engine
	coordinator   *services.RunCoordinator
	executions    store.ExecutionStore
	configStore   store.TenantConfigStore
	validators    invoker.Invoker
	bus           *events.Bus
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new orchestrator Service with the given configuration.
//
// # Description
//
// New initializes all orchestrator components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing
//  3. Initializes Prometheus metrics
//  4. Builds the shared AWS configuration and the DynamoDB/Lambda clients
//  5. Wires the stores, invoker, event bus, and run coordinator
//  6. Sets up HTTP routes
//
// # Outputs
//
//   - Service: Ready-to-run orchestrator service
//   - error: Non-nil if initialization fails
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	if !s.config.DisableMetrics {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for validation runs")
	}

	if err := s.initClients(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize AWS clients: %w", err)
	}

	s.bus = events.NewBus()
	s.coordinator = services.NewRunCoordinator(
		s.configStore, s.executions, s.validators, s.bus, s.config.MaxParallelValidators)

	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting orchestrator server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "sentinel-otel-collector:4317"
	}
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = "us-east-1"
	}
	if cfg.ConfigTable == "" {
		cfg.ConfigTable = "sentinel-tenant-ksi-configs"
	}
	if cfg.ExecutionTable == "" {
		cfg.ExecutionTable = "sentinel-ksi-executions"
	}
	if cfg.ExecutionIndex == "" {
		cfg.ExecutionIndex = store.DefaultTenantTimestampIndex
	}
	if cfg.ValidatorPrefix == "" {
		cfg.ValidatorPrefix = "sentinel-validator"
	}
	if cfg.Environment == "" {
		cfg.Environment = "dev"
	}
	if cfg.MaxParallelValidators == 0 {
		cfg.MaxParallelValidators = 5
	}
	if cfg.TriggerRatePerMinute == 0 {
		cfg.TriggerRatePerMinute = 6
	}
	if cfg.TriggerBurst == 0 {
		cfg.TriggerBurst = 3
	}

	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Limitations
//
//   - Uses insecure gRPC connection (appropriate for internal networks)
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("sentinel-orchestrator")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initClients builds the shared AWS configuration plus the DynamoDB and
// Lambda clients, then wires the stores and the validator invoker.
func (s *service) initClients() error {
	ctx := context.Background()

	dynamoCfg := store.DynamoConfig{
		Region:          s.config.AWSRegion,
		Endpoint:        s.config.AWSEndpoint,
		AccessKeyID:     s.config.AWSAccessKeyID,
		SecretAccessKey: s.config.AWSSecretAccessKey,
	}

	awsCfg, err := store.NewAWSConfig(ctx, dynamoCfg)
	if err != nil {
		return err
	}

	dynamoClient, err := store.NewDynamoDBClient(ctx, dynamoCfg)
	if err != nil {
		return err
	}

	lambdaClient := lambda.NewFromConfig(awsCfg, func(o *lambda.Options) {
		if s.config.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.AWSEndpoint)
		}
	})

	s.configStore = store.NewDynamoTenantConfigStore(dynamoClient, s.config.ConfigTable)
	s.executions = store.NewDynamoExecutionStore(dynamoClient, s.config.ExecutionTable, s.config.ExecutionIndex)
	s.validators = invoker.NewLambdaInvoker(lambdaClient, s.config.ValidatorPrefix, s.config.Environment)

	slog.Info("AWS clients initialized",
		"region", s.config.AWSRegion,
		"config_table", s.config.ConfigTable,
		"execution_table", s.config.ExecutionTable,
		"validator_prefix", s.config.ValidatorPrefix,
		"environment", s.config.Environment)

	return nil
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("sentinel-orchestrator"))

	var limiter *middleware.TenantRateLimiter
	if s.config.TriggerRatePerMinute > 0 {
		limiter = middleware.NewTenantRateLimiter(s.config.TriggerRatePerMinute, s.config.TriggerBurst)
	}

	routes.SetupRoutes(s.router, s.coordinator, s.executions, s.validators, s.bus, limiter)
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}
