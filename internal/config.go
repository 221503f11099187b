package internal

import "time"

type Config struct {
	Host                 string        `env:"HOST"`
	Port                 int           `env:"PORT,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH,required=true"`
	ServerSecret         string        `env:"SERVER_SECRET,required=true"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	MaxSessionsPerUser   int           `env:"MAX_SESSIONS_PER_USER,required=true"`
	SessionTimeout       time.Duration `env:"SESSION_TIMEOUT,required=true"`
	SweepInterval        time.Duration `env:"SWEEP_INTERVAL,required=true"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,required=true"`
	SearchResultLimit    int           `env:"SEARCH_RESULT_LIMIT,required=true"`
}
