package models

import "time"

// AnalyticsSummary holds the admin aggregate counts.
type AnalyticsSummary struct {
	TotalStudents   int            `json:"total_students"`
	TotalActivities int            `json:"total_activities"`
	DepartmentWise  map[string]int `json:"department_wise"`
}

// AnalyticsSystemMetrics captures high level instrumentation gathered by the metrics service.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	StoreQueryCount          uint64    `json:"store_query_count"`
	AverageStoreQueryMs      float64   `json:"average_store_query_duration_ms"`
	ActivityDecisions        uint64    `json:"activity_decisions"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
