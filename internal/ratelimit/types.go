package ratelimit

// Limits is the root rate limit configuration
type Limits struct {
	// 每个用户每天的请求上限
	RequestsPerUser int `json:"requestsPerUser"`
	// 每个用户每分钟的请求上限
	RequestsPerMinute int `json:"requestsPerMinute"`
	// 所有用户每天的总请求上限
	TotalDailyLimit int `json:"totalDailyLimit"`
}

// GetDefaultLimits returns the default rate limit configuration
func GetDefaultLimits() Limits {
	return Limits{
		RequestsPerUser:   30,
		RequestsPerMinute: 10,
		TotalDailyLimit:   1000,
	}
}

// Scope identifies which cap a denial came from
type Scope string

const (
	ScopeUserDaily   Scope = "user-daily"
	ScopeUserMinute  Scope = "user-minute"
	ScopeGlobalDaily Scope = "global-daily"
)

// Decision is the outcome of a CheckAndConsume call. A denial is a normal
// outcome, not an error: Reason is shown to the end user verbatim.
type Decision struct {
	Allowed bool
	Scope   Scope
	Reason  string
}

// Status is a read-only dump of a user's current usage, for /quota
type Status struct {
	DailyUsed      int `json:"daily_used"`
	DailyLimit     int `json:"daily_limit"`
	DailyRemaining int `json:"daily_remaining"`
	MinuteLimit    int `json:"minute_limit"`
}
