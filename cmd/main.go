package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	httpSwagger "github.com/swaggo/http-swagger"

	"infoclass-files/config"
	_ "infoclass-files/docs"
	"infoclass-files/internal/handler"
	"infoclass-files/internal/repository"
	"infoclass-files/internal/security"
	"infoclass-files/internal/service"
)

// @title InfoClass-files
// @version 1.0
// @description REST API файлового сервиса InfoClass: вложения к заданиям, сдачам и объявлениям

// @host localhost:8080

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	db, err := config.SetupDatabase(cfg.DatabaseConfig.DSN)
	if err != nil {
		log.Fatalf("Не удалось подключиться к БД: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Ошибка при закрытии БД: %v", err)
		}
	}()

	redisClient, err := config.SetupRedis(&cfg.RedisConfig)
	if err != nil {
		log.Fatalf("Ошибка подключения к Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Ошибка при закрытии Redis: %v", err)
		}
	}()

	srv, router := config.SetupServer(cfg.ServerAddr)

	attachmentRepo := repository.NewAttachmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, time.Duration(cfg.TTL.S3AndRedis)*time.Second)

	s3Service, err := service.NewS3Service(ctx, &cfg.S3Config)
	if err != nil {
		log.Fatalf("Ошибка создания S3 сервиса: %v", err)
	}
	attachmentService := service.NewAttachmentService(attachmentRepo, cacheRepo, s3Service, &cfg.Limits, time.Duration(cfg.TTL.S3AndRedis)*time.Second)

	jwtService := security.NewJWTService(&cfg.JWT)

	fileHandler := handler.NewFileHandler(attachmentService)

	router.Use(config.DBMiddleware(db))
	router.Get("/swagger/*", httpSwagger.WrapHandler)

	setupFileRoutes(router, fileHandler, jwtService, cfg)

	runServer(ctx, srv)
}

func setupFileRoutes(r chi.Router, h *handler.FileHandler, jwtService *security.JWTService, cfg *config.AppConfig) {
	r.Route("/api", func(r chi.Router) {
		r.Use(security.JWTMiddleware([]byte(cfg.JWT.SecretKey), jwtService))

		r.Route("/files", func(r chi.Router) {
			r.Post("/upload", h.UploadFile)

			r.Route("/{file_id}", func(r chi.Router) {
				r.Get("/", h.DownloadFile)
				r.Put("/", h.ReassociateFile)
				r.Delete("/", h.DeleteFile)
			})
		})

		r.Get("/submissions/{id}/files", h.ListSubmissionFiles)
		r.Get("/assignments/{id}/files", h.ListAssignmentFiles)
		r.Get("/announcements/{id}/files", h.ListAnnouncementFiles)
	})
}

func runServer(ctx context.Context, server *http.Server) {
	serverErrors := make(chan error, 1)
	go func() {
		log.Println("сервер запущен на " + server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			log.Fatalf("ошибка работы сервера: %v", err)
		}
	case sig := <-signalChannel:
		log.Printf("получен сигнал %v остановки работы сервера ", sig)
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		log.Printf("ошибка при остановке сервера: %v", err)
	} else {
		log.Println("Сервер успешно остановлен")
	}
}
