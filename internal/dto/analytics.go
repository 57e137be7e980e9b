package dto

import "github.com/noah-isme/academic-tracker-api/internal/analytics"

// TrendQuery scopes a trend request.
type TrendQuery struct {
	Granularity string `form:"granularity"`
	From        string `form:"from"`
	To          string `form:"to"`
	Limit       int    `form:"limit" validate:"gte=0,lte=366"`
}

// TrendResponse is a bucketed series ready for charting.
type TrendResponse struct {
	Granularity analytics.Granularity `json:"granularity"`
	Periods     []analytics.Period    `json:"periods"`
}

// AnalyticsOverview bundles the summary with both trend series.
type AnalyticsOverview struct {
	Summary    analytics.Summary `json:"summary"`
	Attendance TrendResponse     `json:"attendance"`
	Marks      TrendResponse     `json:"marks"`
}
