package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/pairsync/internal/flagx"
	"github.com/dmitrijs2005/pairsync/internal/timex"
	"github.com/goccy/go-json"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "1h" and integer nanoseconds are accepted. Fields
// left out of the file keep their current value.
type JsonConfig struct {
	GRPCAddress                 *string              `json:"grpc_address"`
	HTTPAddress                 *string              `json:"http_address"`
	DatabaseDSN                 *string              `json:"database_dsn"`
	SecretKey                   *string              `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration      `json:"access_token_validity"`
	InstanceID                  *string              `json:"instance_id"`
	EventBackend                *string              `json:"event_backend"`
	NATSURL                     *string              `json:"nats_url"`
	EmbeddedNATSHost            *string              `json:"embedded_nats_host"`
	EmbeddedNATSPort            *int                 `json:"embedded_nats_port"`
	EmbeddedNATSStoreDir        *string              `json:"embedded_nats_store_dir"`
	EventSubject                *string              `json:"event_subject"`
	PresenceBucket              *string              `json:"presence_bucket"`
	PresenceTTL                 *timex.Duration      `json:"presence_ttl"`
	DeadLetterDir               *string              `json:"dead_letter_dir"`
	DeadLetterRetention         *timex.Duration      `json:"dead_letter_retention"`
	LogFormat                   *string              `json:"log_format"`
	LogLevel                    *string              `json:"log_level"`
	CommunitySyncshells         []CommunitySyncshell `json:"community_syncshells"`
	ExpirySweepInterval         *timex.Duration      `json:"expiry_sweep_interval"`
	CommunitySweepInterval      *timex.Duration      `json:"community_sweep_interval"`
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}

// parseJson loads configuration values from the JSON file named by the
// -c or -config flag. Without the flag nothing is loaded. An unreadable or
// invalid file panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.GRPCAddress, c.GRPCAddress)
	setString(&config.HTTPAddress, c.HTTPAddress)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setString(&config.InstanceID, c.InstanceID)
	setString(&config.EventBackend, c.EventBackend)
	setString(&config.NATSURL, c.NATSURL)
	setString(&config.EmbeddedNATSHost, c.EmbeddedNATSHost)
	if c.EmbeddedNATSPort != nil {
		config.EmbeddedNATSPort = *c.EmbeddedNATSPort
	}
	setString(&config.EmbeddedNATSStoreDir, c.EmbeddedNATSStoreDir)
	setString(&config.EventSubject, c.EventSubject)
	setString(&config.PresenceBucket, c.PresenceBucket)
	setDuration(&config.PresenceTTL, c.PresenceTTL)
	setString(&config.DeadLetterDir, c.DeadLetterDir)
	setDuration(&config.DeadLetterRetention, c.DeadLetterRetention)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)
	if c.CommunitySyncshells != nil {
		config.CommunitySyncshells = c.CommunitySyncshells
	}
	setDuration(&config.ExpirySweepInterval, c.ExpirySweepInterval)
	setDuration(&config.CommunitySweepInterval, c.CommunitySweepInterval)
}
