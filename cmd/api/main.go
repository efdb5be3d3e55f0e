package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/config"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	appHTTP "github.com/cmlabs-hris/hris-attendance-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/snapshot"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/submit"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/timeapi"
	"github.com/cmlabs-hris/hris-attendance-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-attendance-go/internal/service/attendance"
)

const version = "v1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := cfg.Location()

	var source attendance.Source
	switch cfg.App.SourceType {
	case config.SourceAPI:
		source = timeapi.New(ctx, timeapi.Config{
			BaseURL:  cfg.TimeAPI.BaseURL,
			Token:    cfg.TimeAPI.Token,
			Timeout:  cfg.TimeAPI.Timeout,
			CacheTTL: cfg.TimeAPI.CacheTTL,
			Retries:  cfg.TimeAPI.Retries,
			Location: loc,
		})
	case config.SourcePostgres:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			slog.Error("Error connecting to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		source = postgresql.NewAttendanceSource(db, loc)
	}

	hub := sse.NewHub(16)
	store := snapshot.NewStore(func(employeeID string, snap attendance.Snapshot) {
		hub.Publish(employeeID, sse.Event{
			Event: sse.EventSnapshot,
			Data: map[string]interface{}{
				"generation": snap.Generation,
				"fetched_at": snap.FetchedAt.Format(time.RFC3339),
			},
		})
	})

	attendanceSvc := attendanceService.NewAttendanceService(source, store, submit.NewGuard(), hub, attendanceService.Options{
		Location:      loc,
		HistoryDays:   cfg.App.HistoryDays,
		StaleAfter:    cfg.Polling.StaleAfter,
		LocateTimeout: cfg.App.GeolocationTimeout,
	})

	scheduler := cron.NewScheduler()
	cron.NewAttendanceJobs(attendanceSvc, store, cfg.Polling.RecordsInterval, cfg.Polling.ScheduleInterval).RegisterJobs(scheduler)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, cfg.JWT.SSEExpiration)
	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc, JWTService, hub, store, 30*time.Second)

	router := appHTTP.NewRouter(appHTTP.RouterOptions{
		AllowedOrigins: cfg.App.CORSAllowedOrigins,
		Env:            cfg.App.Env,
		Version:        version,
		LogLevel:       cfg.SlogLevel(),
	}, JWTService, attendanceHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Streams end when the process is signalled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
	}()

	slog.Info("Server running", "addr", server.Addr, "source", cfg.App.SourceType, "timezone", loc.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}
