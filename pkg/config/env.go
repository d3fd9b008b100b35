package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvStripeSecretKey  = "STRIPE_SECRET_KEY"
	EnvStripeAPIBase    = "STRIPE_API_BASE"
	EnvStripeTimeout    = "STRIPE_TIMEOUT"
	EnvCheckoutCurrency = "CHECKOUT_CURRENCY"
	EnvClientBaseURL    = "CLIENT_URL"

	EnvJWTSecret = "JWT_SECRET"

	EnvUploadDir     = "UPLOAD_DIR"
	EnvMaxUploadSize = "MAX_UPLOAD_SIZE"

	EnvPendingBookingTTL   = "PENDING_BOOKING_TTL"
	EnvExpirySweepInterval = "EXPIRY_SWEEP_INTERVAL"

	EnvEventsEnabled = "EVENTS_ENABLED"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
