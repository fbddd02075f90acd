package metrics

import (
	"sync"
	"time"
)

// FailureSample is one retained usage-log failure, for the snapshot view.
type FailureSample struct {
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Endpoint  string    `json:"endpoint"`
	Message   string    `json:"message"`
	Success   bool      `json:"business_success"`
}

// EndpointStats aggregates requests per endpoint.
type EndpointStats struct {
	Total    int64            `json:"total"`
	Failed   int64            `json:"failed"`
	Models   map[string]int64 `json:"models"`
	totalLat int64
}

// Store keeps the service's in-process counters: request tallies plus the
// usage-log failure accounting that makes degraded mode visible. All
// read-modify-write paths run under one mutex.
type Store struct {
	mu sync.Mutex

	alertThreshold int
	sampleLimit    int

	failuresTotal        int64
	degradedSuccessTotal int64
	alertEvents          int64
	errorCategories      map[string]int64
	failureEndpoints     map[string]int64
	samples              []FailureSample

	requestsTotal  int64
	requestsFailed int64
	endpoints      map[string]*EndpointStats
}

func NewStore(alertThreshold, sampleLimit int) *Store {
	if alertThreshold <= 0 {
		alertThreshold = 10
	}
	if sampleLimit <= 0 {
		sampleLimit = 50
	}
	return &Store{
		alertThreshold:   alertThreshold,
		sampleLimit:      sampleLimit,
		errorCategories:  make(map[string]int64),
		failureEndpoints: make(map[string]int64),
		endpoints:        make(map[string]*EndpointStats),
	}
}

// RecordUsageLogFailure accounts one failed audit write. businessSuccess
// marks the degraded-success case: the caller got their answer but the
// audit trail lost it. Returns whether this failure landed on an alert
// threshold multiple.
func (s *Store) RecordUsageLogFailure(category, endpoint, message string, businessSuccess bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failuresTotal++
	if businessSuccess {
		s.degradedSuccessTotal++
	}
	s.errorCategories[category]++
	s.failureEndpoints[endpoint]++

	s.samples = append(s.samples, FailureSample{
		Timestamp: time.Now().UTC(),
		Category:  category,
		Endpoint:  endpoint,
		Message:   message,
		Success:   businessSuccess,
	})
	if len(s.samples) > s.sampleLimit {
		s.samples = s.samples[len(s.samples)-s.sampleLimit:]
	}

	usageLogFailures.WithLabelValues(category).Inc()
	if businessSuccess {
		degradedSuccesses.Inc()
	}

	triggered := s.failuresTotal%int64(s.alertThreshold) == 0
	if triggered {
		s.alertEvents++
		alertsFired.Inc()
	}
	return triggered
}

// RecordRequest accounts one business request against the endpoint and
// model tallies.
func (s *Store) RecordRequest(endpoint, model string, success bool, latencyMS int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requestsTotal++
	if !success {
		s.requestsFailed++
	}

	ep, ok := s.endpoints[endpoint]
	if !ok {
		ep = &EndpointStats{Models: make(map[string]int64)}
		s.endpoints[endpoint] = ep
	}
	ep.Total++
	ep.totalLat += latencyMS
	if !success {
		ep.Failed++
	}
	if model != "" {
		ep.Models[model]++
	}

	requestsTotal.WithLabelValues(endpoint, successLabel(success)).Inc()
	requestLatency.WithLabelValues(endpoint).Observe(float64(latencyMS) / 1000)
}

// Snapshot is the JSON shape of the admin metrics endpoint.
type Snapshot struct {
	RequestsTotal  int64                    `json:"requests_total"`
	RequestsFailed int64                    `json:"requests_failed"`
	Endpoints      map[string]*EndpointView `json:"endpoints"`
	UsageLogging   UsageLoggingSnapshot     `json:"usage_logging"`
}

type EndpointView struct {
	Total        int64            `json:"total"`
	Failed       int64            `json:"failed"`
	LatencyMSAvg float64          `json:"latency_ms_avg"`
	Models       map[string]int64 `json:"models"`
}

type UsageLoggingSnapshot struct {
	FailuresTotal        int64            `json:"failures_total"`
	DegradedSuccessTotal int64            `json:"degraded_success_total"`
	AlertThreshold       int              `json:"alert_threshold"`
	AlertEvents          int64            `json:"alert_events"`
	AlertActive          bool             `json:"alert_active"`
	ErrorCategories      map[string]int64 `json:"error_categories"`
	Endpoints            map[string]int64 `json:"endpoints"`
	RecentSamples        []FailureSample  `json:"recent_samples"`
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	endpoints := make(map[string]*EndpointView, len(s.endpoints))
	for name, ep := range s.endpoints {
		view := &EndpointView{
			Total:  ep.Total,
			Failed: ep.Failed,
			Models: make(map[string]int64, len(ep.Models)),
		}
		if ep.Total > 0 {
			view.LatencyMSAvg = float64(ep.totalLat) / float64(ep.Total)
		}
		for m, n := range ep.Models {
			view.Models[m] = n
		}
		endpoints[name] = view
	}

	categories := make(map[string]int64, len(s.errorCategories))
	for k, v := range s.errorCategories {
		categories[k] = v
	}
	failureEndpoints := make(map[string]int64, len(s.failureEndpoints))
	for k, v := range s.failureEndpoints {
		failureEndpoints[k] = v
	}
	samples := make([]FailureSample, len(s.samples))
	copy(samples, s.samples)

	return Snapshot{
		RequestsTotal:  s.requestsTotal,
		RequestsFailed: s.requestsFailed,
		Endpoints:      endpoints,
		UsageLogging: UsageLoggingSnapshot{
			FailuresTotal:        s.failuresTotal,
			DegradedSuccessTotal: s.degradedSuccessTotal,
			AlertThreshold:       s.alertThreshold,
			AlertEvents:          s.alertEvents,
			AlertActive:          s.alertEvents > 0,
			ErrorCategories:      categories,
			Endpoints:            failureEndpoints,
			RecentSamples:        samples,
		},
	}
}

func successLabel(success bool) string {
	if success {
		return "true"
	}
	return "false"
}
