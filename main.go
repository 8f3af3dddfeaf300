// This is the main entry point of the credstore service. It is responsible
// for initializing configuration, the database connection pool, services,
// handlers, setting up the HTTP router and middleware, and starting the HTTP
// server with graceful shutdown.
//
// @title Credstore API
// @version 1.0
// @description Minimal credential-issuance and verification service.
// @BasePath /
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/user/credstore-go/apperror"
	"github.com/user/credstore-go/config"
	"github.com/user/credstore-go/db"
	"github.com/user/credstore-go/password"
	"github.com/user/credstore-go/users"
)

func main() {
	// .env loading is a development convenience; in production the variables
	// are set directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading it: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := db.NewPool(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer pool.Close()
	log.Println("Connected to the database")

	if err := db.RunMigrations(cfg.DB, cfg.Migrations); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database schema up to date")

	// Hashing parameters were validated at config load; a failure here means
	// the process must not serve traffic.
	hasher, err := password.NewHasher(cfg.Hashing)
	if err != nil {
		log.Fatalf("Failed to initialize password hasher: %v", err)
	}

	userService := users.NewService(users.NewPGStore(pool), hasher)
	userHandlers := users.NewHandlers(userService)

	r := chi.NewRouter()

	// Global middleware; chi requires these registered before any routes.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Convert any panic that slips past a handler into a structured 500
	// instead of a bare text response.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				if rvr := recover(); rvr != nil {
					log.Printf("Panic: %+v", rvr)
					writeError(ww, apperror.NewInternalError("internal server error", nil))
				}
			}()
			next.ServeHTTP(ww, r)
		})
	})

	r.Post("/register", userHandlers.HandleRegister())
	r.Post("/login", userHandlers.HandleLogin())
	r.Get("/users", userHandlers.HandleList())
	r.Get("/users/{id}", userHandlers.HandleGetByID())

	addr := fmt.Sprintf(":%s", cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the server in a goroutine so the main goroutine can wait for
	// shutdown signals.
	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// writeError is a local helper for the panic recovery middleware. It is kept
// separate from the users package helpers to avoid pulling handler plumbing
// into main.
func writeError(w http.ResponseWriter, appErr *apperror.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	if err := json.NewEncoder(w).Encode(appErr.ToResponse()); err != nil {
		http.Error(w, `{"error":"failed to encode error response"}`, http.StatusInternalServerError)
	}
}
