package cache

// Config holds score cache configuration
type Config struct {
	MaxSize int `yaml:"max_size" validate:"gte=0"` // Maximum number of entries
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() Config {
	return Config{MaxSize: 10000}
}

// Stats represents cache statistics
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Shared    int64   `json:"shared"` // misses served by a concurrent computation
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	HitRate   float64 `json:"hit_rate"`
}

// CalculateHitRate calculates the hit rate
func (s *Stats) CalculateHitRate() {
	total := s.Hits + s.Misses
	if total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	} else {
		s.HitRate = 0.0
	}
}
