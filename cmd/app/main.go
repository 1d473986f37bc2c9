package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/techtonic-plates-blog/posts-service/configs"
	"github.com/techtonic-plates-blog/posts-service/internal/auth"
	"github.com/techtonic-plates-blog/posts-service/internal/kafka"
	"github.com/techtonic-plates-blog/posts-service/internal/migrate"
	"github.com/techtonic-plates-blog/posts-service/internal/post"
	"github.com/techtonic-plates-blog/posts-service/internal/ratelimit"
	"github.com/techtonic-plates-blog/posts-service/internal/shared/db"
	"github.com/techtonic-plates-blog/posts-service/internal/shared/httpx"
	"github.com/techtonic-plates-blog/posts-service/internal/shared/redisx"
	"github.com/techtonic-plates-blog/posts-service/internal/storage/s3"
	"github.com/techtonic-plates-blog/posts-service/internal/tag"
)

func initOTEL(ctx context.Context) func(context.Context) error {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "otel-collector:4318"
	}
	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Fatalf("otel exporter: %v", err)
	}
	res, _ := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("posts-service"),
		attribute.String("deployment.environment", "local"),
	))
	tp := trace.NewTracerProvider(trace.WithBatcher(exp), trace.WithResource(res))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown
}

func main() {
	ctx := context.Background()
	shutdown := initOTEL(ctx)
	defer func() {
		c, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = shutdown(c)
	}()

	cfg := configs.LoadConfig()

	store, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := migrate.All(store); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	objects, err := s3.New(s3.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
		Bucket:    cfg.S3Bucket,
	})
	if err != nil {
		log.Fatalf("s3: %v", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		log.Fatalf("s3 ensure bucket: %v", err)
	}

	events := kafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer events.Close()

	limiter := ratelimit.New(redisx.NewClient(cfg.RedisAddr()))
	parser := auth.NewTokenParser(cfg.JWTSecret)

	repo := post.NewRepository(store)
	svc := post.NewService(repo, tag.NewRegistrar(), store, events)
	h := post.NewHandler(svc, objects)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("GET /posts", otelhttp.NewHandler(httpx.Wrap(h.List), "posts.list"))
	mux.Handle("GET /posts/{slug}", otelhttp.NewHandler(httpx.Wrap(h.GetBySlug), "posts.get"))
	mux.Handle("GET /posts/{slug}/hero", otelhttp.NewHandler(httpx.Wrap(h.HeroImage), "posts.hero"))
	mux.Handle("POST /posts/bulk_get", otelhttp.NewHandler(httpx.Wrap(h.BulkGet), "posts.bulk_get"))

	actorKey := func(r *http.Request) (string, error) {
		claims, err := httpx.ClaimsFromCtx(r)
		if err != nil {
			return "", err
		}
		return claims.Subject, nil
	}
	protected := func(pattern, name string, fn httpx.HandlerFunc) {
		handler := limiter.LimitHTTP(cfg.RateLimit, cfg.RateLimitWindow, actorKey, httpx.Wrap(fn))
		mux.Handle(pattern, otelhttp.NewHandler(httpx.AuthMiddleware(parser, handler), name))
	}
	protected("POST /posts", "posts.create", h.Create)
	protected("POST /posts/upload", "posts.upload", h.UploadAndCreate)
	protected("PATCH /posts/{slug}", "posts.patch", h.Patch)
	protected("DELETE /posts/{slug}", "posts.delete", h.Delete)

	srv := &http.Server{
		Addr:              cfg.AppPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
	log.Printf("posts-service listening on %s", cfg.AppPort)
	log.Fatal(srv.ListenAndServe())
}
