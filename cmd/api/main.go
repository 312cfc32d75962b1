package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/config"
	appHTTP "github.com/cmlabs-hris/attendance-engine-go/internal/handler/http"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/queue"
	"github.com/cmlabs-hris/attendance-engine-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/attendance-engine-go/internal/service/attendanceproc"
	"github.com/cmlabs-hris/attendance-engine-go/internal/service/ingestion"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	dsn := cfg.DatabaseURL()
	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}
	defer db.Close()

	eventRepo := postgresql.NewEventRepository(db)
	recordRepo := postgresql.NewRecordRepository(db)
	deviceRepo := postgresql.NewDeviceRepository(db)
	jobRepo := postgresql.NewJobRepository(db)
	logRepo := postgresql.NewProcessingLogRepository(db)
	scheduleResolver := postgresql.NewScheduleResolver(db)
	holidayResolver := postgresql.NewHolidayResolver(db)

	jwtService := jwt.NewJWTService(cfg.JWT.Secret)

	processingService := attendanceproc.NewProcessingService(
		db,
		recordRepo,
		eventRepo,
		scheduleResolver,
		holidayResolver,
		logRepo,
		cfg.Attendance,
	)
	batchService := attendanceproc.NewBatchService(processingService, eventRepo, recordRepo)

	pool := queue.NewPool(jobRepo, queue.ProcessorFunc(func(ctx context.Context, userID string, date time.Time) error {
		_, err := processingService.ProcessUserDay(ctx, userID, date, "system:queue")
		return err
	}), cfg.Worker)

	ingestionService := ingestion.NewIngestionService(eventRepo, deviceRepo, pool, cfg.Attendance)

	scheduler := cron.NewScheduler()
	cron.NewAttendanceJobs(ingestionService, batchService, pool, cfg.Attendance).RegisterJobs(scheduler)

	eventHandler := appHTTP.NewEventHandler(ingestionService)
	recordHandler := appHTTP.NewRecordHandler(processingService)
	processingHandler := appHTTP.NewProcessingHandler(batchService)

	router := appHTTP.NewRouter(jwtService, eventHandler, recordHandler, processingHandler)

	pool.Start()
	scheduler.Start()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.App.Port, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	scheduler.Stop()
	pool.Stop()
	slog.Info("Shutdown complete")
}
