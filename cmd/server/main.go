package main

import (
	"context"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmoboard/board/internal/config"
	"github.com/mmoboard/board/internal/db"
	"github.com/mmoboard/board/internal/handlers"
	"github.com/mmoboard/board/internal/repository"
	"github.com/mmoboard/board/internal/service"
)

func main() {
	// 1. Load configuration
	cfg := config.LoadConfig()
	log.Println("✓ Configuration loaded")

	// 2. Initialize database connection
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DBUrl, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(cfg.DBUrl); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	log.Println("✓ Migrations applied")

	// 3. Initialize layers
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	boardRepo := repository.NewBoardRepository(pool)

	mailer := service.NewSMTPMailer(cfg)
	emailService := service.NewEmailService(mailer, cfg.SiteURL)
	registrationService := service.NewRegistrationService(userRepo, sessionRepo, emailService)
	accountService := service.NewAccountService(userRepo, boardRepo, sessionRepo, emailService, cfg.SiteURL)
	boardService := service.NewBoardService(boardRepo, userRepo, emailService)

	sm := handlers.NewSessionManager(sessionRepo, userRepo)
	authHandler := handlers.NewAuthHandler(registrationService, accountService, sm)
	profileHandler := handlers.NewProfileHandler(accountService, sm)
	boardHandler := handlers.NewBoardHandler(boardService, sm)

	// 4. Setup Gin router
	router := gin.Default()
	router.SetFuncMap(template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	})
	router.LoadHTMLGlob("web/templates/*.html")
	router.Use(sm.Middleware())

	authHandler.RegisterRoutes(router)
	profileHandler.RegisterRoutes(router)
	boardHandler.RegisterRoutes(router)

	// 5. Start server with graceful shutdown
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Println("🚀 Server starting on", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Periodically drop expired sessions so the table does not grow unbounded.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := sessionRepo.DeleteExpired(context.Background()); err != nil {
				log.Println("Failed to clean up sessions:", err)
			} else if n > 0 {
				log.Printf("Cleaned up %d expired sessions", n)
			}
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("✓ Server exited")
}
