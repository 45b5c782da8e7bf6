package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/sundayrunners/attendapi/config"
	"github.com/sundayrunners/attendapi/db"
	"github.com/sundayrunners/attendapi/handlers"
	applog "github.com/sundayrunners/attendapi/logger"
	mw "github.com/sundayrunners/attendapi/middleware"
)

func main() {
	cfg := config.Load()
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	bdb := db.Setup(cfg)
	defer bdb.Close()

	if err := db.CreateTables(context.Background(), bdb); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}

	h := handlers.New(bdb, cfg, logger)

	e := echo.New()
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			switch {
			case v.Status >= 500:
				logger.Error("http request", fields...)
			case v.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"*", "Authorization"},
		AllowCredentials: true,
	}))

	// Public – runner-facing
	e.POST("/api/auth/signin", h.Signin)
	e.POST("/api/register", h.Register)
	e.GET("/api/attendance/today", h.TodayAttendance)
	e.GET("/api/attendance/history", h.AttendanceHistory)
	e.GET("/api/calendar/today", h.CalendarToday)
	e.GET("/api/qr/validate", h.ValidateQR)
	e.GET("/api/stream/:sessionID", h.Stream)

	// Admin – require valid JWT in Authorization header
	admin := e.Group("/api", mw.JWT(cfg.JWTKey()))
	admin.POST("/calendar/configure", h.ConfigureRunDay)
	admin.GET("/calendar", h.Calendar)
	admin.GET("/attendance/export", h.ExportAttendance)
	admin.GET("/qr/:sessionID", h.QRCode)
	admin.GET("/admin/attendance", h.OverrideList)
	admin.POST("/admin/attendance", h.OverrideAdd)
	admin.PUT("/admin/attendance/:id", h.OverrideEdit)
	admin.DELETE("/admin/attendance/:id", h.OverrideDelete)
	admin.DELETE("/admin/runs/:date", h.OverrideDeleteRun)

	if cfg.Debug {
		logger.Info("starting server", zap.String("mode", "debug"), zap.String("addr", cfg.Port))
		if err := e.Start(cfg.Port); err != nil {
			logger.Fatal("server exited", zap.Error(err))
		}
		return
	}

	autoTLS := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Cache:      autocert.DirCache(".cache"),
		HostPolicy: autocert.HostWhitelist(cfg.TLSDomains...),
	}

	s := &http.Server{
		Addr:         ":443",
		Handler:      e,
		TLSConfig:    autoTLS.TLSConfig(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	if err := s.ListenAndServeTLS("", ""); err != http.ErrServerClosed {
		logger.Error("tls server exited", zap.Error(err))
		os.Exit(1)
	}
}
