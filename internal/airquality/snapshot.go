package airquality

// Sources distinguishing fresh snapshots from cached fallbacks.
const (
	SourceFresh  = "OpenAQ v3"
	SourceCached = "OpenAQ (cached)"
)

// WeatherReading is the weather attached to a snapshot or outlook point.
// All fields are absent when the weather collaborator is unavailable.
type WeatherReading struct {
	TempC       *float64 `json:"temp_c,omitempty"`
	WindMS      *float64 `json:"wind_m_s,omitempty"`
	PressureHPa *float64 `json:"pressure_hpa,omitempty"`
}

// Known reports whether both stagnation inputs are present.
func (w WeatherReading) Known() bool {
	return w.WindMS != nil && w.PressureHPa != nil
}

// Snapshot is the scored "current conditions" result for a point.
type Snapshot struct {
	City        string     `json:"city"`
	CityDisplay string     `json:"city_display"`
	Coords      Coordinate `json:"coords"`

	PM25 float64 `json:"pm25_ug_m3"`
	Unit string  `json:"unit"`

	AQI        int     `json:"aqi"`
	Category   string  `json:"category"`
	RiskScore  int     `json:"risk_score"`
	Confidence float64 `json:"confidence"`
	Trend      string  `json:"trend"`

	TimestampUTC   string `json:"timestamp_utc"`
	TimestampLocal string `json:"timestamp_local,omitempty"`

	SensorID     *int64 `json:"sensor_id,omitempty"`
	LocationID   int64  `json:"location_id"`
	LocationName string `json:"location_name"`
	Provider     string `json:"provider,omitempty"`
	Owner        string `json:"owner,omitempty"`

	Source  string         `json:"source"`
	Weather WeatherReading `json:"weather"`

	Stale bool   `json:"stale,omitempty"`
	Error string `json:"error,omitempty"`
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.SensorID = clonePtr(s.SensorID)
	c.Weather = WeatherReading{
		TempC:       clonePtr(s.Weather.TempC),
		WindMS:      clonePtr(s.Weather.WindMS),
		PressureHPa: clonePtr(s.Weather.PressureHPa),
	}
	return &c
}

// MarkStale returns a copy annotated as a cached fallback for cause.
func (s *Snapshot) MarkStale(cause error) *Snapshot {
	c := s.Clone()
	c.Stale = true
	c.Source = SourceCached
	if cause != nil {
		c.Error = cause.Error()
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
