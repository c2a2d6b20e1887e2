package models

// EnvironmentalReportRequest is the body of POST /api/environmental-report.
type EnvironmentalReportRequest = LocationRequest

// EnvironmentalReport is the aggregated snapshot for one location.
type EnvironmentalReport struct {
	Location         Location      `json:"location"`
	AQIData          AQIData       `json:"aqi_data"`
	WeatherData      WeatherData   `json:"weather_data"`
	NoiseLevel       float64       `json:"noise_level"`
	WaterLoggingRisk string        `json:"water_logging_risk"`
	CivicComplaints  []CivicReport `json:"civic_complaints"`
	AISuggestions    []string      `json:"ai_suggestions"`
	HealthScore      HealthScore   `json:"health_score"`
	Timestamp        Timestamp     `json:"timestamp"`
}

// AQIData is the air-quality block of a report.
type AQIData struct {
	AQI      int           `json:"aqi"`
	PM25     float64       `json:"pm25"`
	PM10     float64       `json:"pm10"`
	O3       float64       `json:"o3"`
	NO2      float64       `json:"no2"`
	SO2      float64       `json:"so2"`
	CO       float64       `json:"co"`
	Status   string        `json:"status"`
	Forecast []AQIForecast `json:"forecast"`
}

// AQIForecast is one day of the AQI outlook.
type AQIForecast struct {
	Day    string `json:"day"`
	AQI    int    `json:"aqi"`
	Status string `json:"status"`
}

// WeatherData is the weather block of a report.
type WeatherData struct {
	Temperature   float64 `json:"temperature"`
	Humidity      int     `json:"humidity"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection int     `json:"wind_direction"`
	Pressure      float64 `json:"pressure"`
	Visibility    float64 `json:"visibility"`
}

// HealthScore is the 0-100 environmental health index with its breakdown.
type HealthScore struct {
	Score        int `json:"score"`
	AirScore     int `json:"air_score"`
	NoiseScore   int `json:"noise_score"`
	WeatherScore int `json:"weather_score"`
}
