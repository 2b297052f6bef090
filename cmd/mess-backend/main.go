package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"mess-backend/internal/config"
	"mess-backend/internal/env"
	"mess-backend/internal/infrastructure/events"
	"mess-backend/internal/infrastructure/razorpay"
	"mess-backend/internal/infrastructure/repo"
	"mess-backend/internal/server"
	"mess-backend/internal/usecase"
)

func main() {
	env.Load(".env", ".env.local")
	envDefaults := config.EnvDefaults()

	envName := flag.String("env", envDefaults.Env, "")
	port := flag.Int("port", envDefaults.Port, "")
	dbURL := flag.String("db", envDefaults.DatabaseURL, "")
	jwtSecret := flag.String("jwt-secret", envDefaults.JWTSecret, "")
	amqpURL := flag.String("amqp", envDefaults.AmqpURL, "")
	payMock := flag.Bool("pay-mock", envDefaults.PayMock, "")

	flag.Parse()

	cfg := config.Config{
		Env:               *envName,
		Port:              *port,
		DatabaseURL:       *dbURL,
		JWTSecret:         *jwtSecret,
		RazorpayKeyID:     envDefaults.RazorpayKeyID,
		RazorpayKeySecret: envDefaults.RazorpayKeySecret,
		PayMock:           *payMock,
		AmqpURL:           *amqpURL,
	}

	var (
		orderRepo usecase.OrderRepo
		userRepo  usecase.UserRepo
		messRepo  usecase.MessRepo
	)
	if cfg.DatabaseURL != "" {
		pg, err := repo.NewPostgresRepo(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		orderRepo, userRepo, messRepo = pg, pg, pg
		log.Println("using postgres store")
	} else {
		orderRepo = repo.NewMemoryOrderRepo()
		userRepo = repo.NewMemoryUserRepo()
		messRepo = repo.NewMemoryMessRepo()
		log.Println("using in-memory store")
	}

	gateway := &razorpay.Client{
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		Mock:      cfg.PayMock,
	}

	hub := events.NewHub()
	orders := &usecase.OrderService{
		Repo:    orderRepo,
		Gateway: gateway,
		Feed:    hub,
	}
	if cfg.AmqpURL != "" {
		pub, err := events.NewRabbitPublisher(cfg.AmqpURL)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer pub.Close()
		orders.Events = pub
		log.Println("publishing order events to rabbitmq")
	}

	auth := &usecase.AuthService{Repo: userRepo, JWTSecret: cfg.JWTSecret}
	messes := &usecase.MessService{Repo: messRepo}

	srv := server.New(cfg, auth, orders, messes, hub, gateway)
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("mess-backend listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatalf("server: %v", err)
	}
}
