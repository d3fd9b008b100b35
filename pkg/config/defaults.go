package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "carhive"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultStripeAPIBase    = "https://api.stripe.com/v1"
	DefaultStripeTimeout    = 20 * time.Second
	DefaultCheckoutCurrency = "inr"
	DefaultClientBaseURL    = "http://localhost:5177"

	DefaultUploadDir     = "uploads"
	DefaultMaxUploadSize = 5 * 1024 * 1024 // 5MB

	DefaultPendingBookingTTL   = 30 * time.Minute
	DefaultExpirySweepInterval = 1 * time.Minute

	DefaultEventsEnabled = false

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 12
	MaxPaginationLimit     = 100

	DefaultLogLevel = "info"
)
