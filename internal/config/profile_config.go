package config

import "time"

type ProfileConfig interface {
	GetProfileCacheTTL() time.Duration
}

type Profile struct{}

var _ ProfileConfig = Profile{}

// GetProfileCacheTTL is how long a fetched session profile is considered
// fresh before LoadFromAPI hits the network again.
func (Profile) GetProfileCacheTTL() time.Duration {
	return 5 * time.Minute
}
