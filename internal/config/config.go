package config

import (
	"os"
	"strconv"
)

type Config struct {
	Env               string
	Port              int
	DatabaseURL       string
	JWTSecret         string
	RazorpayKeyID     string
	RazorpayKeySecret string
	PayMock           bool
	AmqpURL           string
}

func Default() Config {
	return Config{
		Env:       "dev",
		Port:      5000,
		JWTSecret: "",
		PayMock:   true,
	}
}

func EnvDefaults() Config {
	return fromEnv(Default())
}

func fromEnv(c Config) Config {
	if v := os.Getenv("MESS_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("MESS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("MESS_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("MESS_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("RAZORPAY_KEY_ID"); v != "" {
		c.RazorpayKeyID = v
	}
	if v := os.Getenv("RAZORPAY_KEY_SECRET"); v != "" {
		c.RazorpayKeySecret = v
	}
	if v := os.Getenv("MESS_PAY_MOCK"); v != "" {
		switch v {
		case "1", "true", "TRUE":
			c.PayMock = true
		case "0", "false", "FALSE":
			c.PayMock = false
		}
	}
	if v := os.Getenv("MESS_AMQP_URL"); v != "" {
		c.AmqpURL = v
	}
	return c
}
