package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookmapper/backend/config"
	"github.com/bookmapper/backend/handlers"
	"github.com/bookmapper/backend/internal/logger"
	"github.com/bookmapper/backend/internal/metrics"
	"github.com/bookmapper/backend/middleware"
	"github.com/bookmapper/backend/service"
	"github.com/bookmapper/backend/store"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connect failed")
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongodb disconnect")
		}
	}()
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("create geo index failed")
	}
	log.Info().Str("db", cfg.DBName).Msg("connected to MongoDB")

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("create upload dir failed")
	}

	m := metrics.New()

	var remote service.Uploader
	if cfg.S3Bucket != "" {
		s3svc, err := service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			log.Fatal().Err(err).Msg("s3 init failed")
		}
		remote = s3svc
	} else {
		log.Warn().Msg("AWS_S3_BUCKET not set; PDF uploads will be stored locally")
	}
	resolver := service.NewUploadResolver(remote, cfg.UploadDir, log, m)

	tmpl, err := handlers.ParseTemplates()
	if err != nil {
		log.Fatal().Err(err).Msg("parse templates failed")
	}

	booksHandler := &handlers.BooksHandler{
		Store:    db,
		Resolver: resolver,
		Metrics:  m,
		Log:      log,
		MaxBytes: cfg.MaxUploadMB * 1024 * 1024,
	}
	pagesHandler := &handlers.PagesHandler{
		Store:     db,
		Templates: tmpl,
		UploadDir: cfg.UploadDir,
		Log:       log,
	}

	r := chi.NewRouter()
	r.Use(middleware.AllowAll())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Instrument(m))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/book", booksHandler.Create)
		r.Post("/book-with-pdf", booksHandler.CreateWithPDF)
		r.Get("/books-in-bbox", booksHandler.BBox)
		r.Get("/search", booksHandler.Search)
	})

	r.Get("/book/{id}", pagesHandler.Reader)
	r.Get("/pdf/{filename}", pagesHandler.ServePDF)

	if cfg.AuthEnabled {
		hash, err := handlers.HashPassword(cfg.AdminPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("hash admin password failed")
		}
		authHandler := &handlers.AuthHandler{
			Templates:    tmpl,
			JWTSecret:    cfg.JWTSecret,
			PasswordHash: hash,
			Log:          log,
		}
		r.Get("/login", authHandler.LoginForm)
		r.Post("/login", authHandler.Login)
		r.Get("/logout", authHandler.Logout)
		r.With(middleware.Session(cfg.JWTSecret)).Get("/", pagesHandler.Home)
	} else {
		r.Get("/", pagesHandler.Home)
	}

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info().Str("port", cfg.Port).Bool("auth", cfg.AuthEnabled).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown")
	}
}
