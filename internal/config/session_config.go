package config

import "time"

type SessionConfig interface {
	GetRefreshLeadPercent() float64
	GetRefreshMinLead() time.Duration
	GetRefreshSkew() time.Duration
	GetWarnThreshold() time.Duration
	GetHardFloor() time.Duration
	GetHiddenPollInterval() time.Duration
	GetWarningPollInterval() time.Duration
	GetRequestTimeout() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetRefreshLeadPercent is the fraction of the token TTL reserved as lead
// time before expiry when scheduling a proactive refresh.
func (Session) GetRefreshLeadPercent() float64 {
	return 0.1
}

func (Session) GetRefreshMinLead() time.Duration {
	return 30 * time.Second
}

// GetRefreshSkew absorbs clock drift between client and backend.
func (Session) GetRefreshSkew() time.Duration {
	return 5 * time.Second
}

// GetWarnThreshold is the remaining time-to-expiry at which the expiry
// warning becomes visible.
func (Session) GetWarnThreshold() time.Duration {
	return 120 * time.Second
}

// GetHardFloor is the remaining time-to-expiry at which the session is
// forcibly logged out if the user has not acted.
func (Session) GetHardFloor() time.Duration {
	return 10 * time.Second
}

func (Session) GetHiddenPollInterval() time.Duration {
	return 5 * time.Second
}

func (Session) GetWarningPollInterval() time.Duration {
	return 1 * time.Second
}

func (Session) GetRequestTimeout() time.Duration {
	return 30 * time.Second
}
