package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks the environment variables read by parseEnv, e.g.
// PAIRSYNC_GRPC_ADDRESS -> grpc_address.
const EnvPrefix = "PAIRSYNC_"

const communityKey = "community_syncshells"

func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// parseEnv overlays PAIRSYNC_* variables onto config. Durations use Go
// syntax ("90s"). PAIRSYNC_COMMUNITY_SYNCSHELLS holds a comma separated list
// of vanity:password pairs.
func parseEnv(config *Config) error {
	k := koanf.New(".")

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return fmt.Errorf("load environment: %w", err)
	}

	if err := k.Unmarshal("", config); err != nil {
		return fmt.Errorf("decode environment: %w", err)
	}

	if raw := k.String(communityKey); raw != "" {
		community, err := parseCommunity(raw)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, strings.ToUpper(communityKey), err)
		}
		config.CommunitySyncshells = community
	}
	return nil
}

func parseCommunity(raw string) ([]CommunitySyncshell, error) {
	var out []CommunitySyncshell
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		vanity, password, ok := strings.Cut(item, ":")
		if !ok || vanity == "" || password == "" {
			return nil, fmt.Errorf("entry %q is not vanity:password", item)
		}
		out = append(out, CommunitySyncshell{VanityID: vanity, Password: password})
	}
	return out, nil
}
