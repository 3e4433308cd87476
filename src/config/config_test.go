package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"APP_PORT", "DB_DRIVER", "MONGO_DB", "JWT_TTL", "DB_TIMEOUT", "VOTE_RATE_PER_MIN", "MONGO_TRANSACTIONS"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, "8888", cfg.AppPort)
	assert.Equal(t, DriverMongo, cfg.DBDriver)
	assert.Equal(t, "PollSurveyDB", cfg.MongoDB)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 5*time.Second, cfg.DBTimeout)
	assert.Equal(t, 30, cfg.VoteRatePerMin)
	assert.False(t, cfg.MongoTransactions)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DB_DRIVER", "MEMORY")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("VOTE_RATE_PER_MIN", "not-a-number")
	t.Setenv("MONGO_TRANSACTIONS", "true")

	cfg := FromEnv()

	assert.Equal(t, "9000", cfg.AppPort)
	assert.Equal(t, DriverMemory, cfg.DBDriver)
	assert.Equal(t, 90*time.Minute, cfg.JWTTTL)
	assert.Equal(t, 30, cfg.VoteRatePerMin, "invalid values fall back to the default")
	assert.True(t, cfg.MongoTransactions)
}

func TestValidateJWTSecret(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		secret  string
		wantErr bool
	}{
		{"mongo without secret", DriverMongo, "", true},
		{"mongo with secret", DriverMongo, "s3cret", false},
		{"memory without secret", "memory", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_DRIVER", tt.driver)
			t.Setenv("JWT_SECRET", tt.secret)

			err := FromEnv().Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrJWTSecretUnset)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
