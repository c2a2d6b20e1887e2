package risk

import "math"

// HealthInput is the environmental snapshot a health score is computed from.
type HealthInput struct {
	AQI int

	// Temperature in Celsius.
	Temperature float64

	// Humidity percentage.
	Humidity float64

	// WindSpeed in km/h.
	WindSpeed float64

	// NoiseDB is the ambient noise level in dB.
	NoiseDB float64

	// PrecipitationMM is rainfall over the last hour.
	PrecipitationMM float64
}

// HealthWeights sets how much each sub-score contributes. They should sum to 1.
type HealthWeights struct {
	Air     float64
	Noise   float64
	Weather float64
}

// DefaultHealthWeights favors air quality.
var DefaultHealthWeights = HealthWeights{Air: 0.5, Noise: 0.25, Weather: 0.25}

// HealthScore is a 0-100 environmental health index with its breakdown.
// Higher is healthier.
type HealthScore struct {
	Score        int
	AirScore     int
	NoiseScore   int
	WeatherScore int
}

// Comfort targets used by the weather sub-score.
const (
	idealTemperature = 23.0
	idealHumidity    = 45.0
	idealWindMS      = 3.0
)

// EnvironmentalHealth scores a location from its air, noise and weather.
func EnvironmentalHealth(in HealthInput, w HealthWeights) HealthScore {
	air := clamp(100 - float64(in.AQI)/400*100)
	noise := clamp(100 - (in.NoiseDB-40)/50*100)

	windMS := in.WindSpeed / 3.6
	temp := clamp(100 - math.Abs(in.Temperature-idealTemperature)/15*100)
	humidity := clamp(100 - math.Abs(in.Humidity-idealHumidity)/40*100)
	wind := clamp(100 - math.Abs(windMS-idealWindMS)/5*100)

	weather := clamp(temp*0.5 + humidity*0.3 + wind*0.2 - precipitationPenalty(in.PrecipitationMM))

	total := air*w.Air + noise*w.Noise + weather*w.Weather

	return HealthScore{
		Score:        int(math.Round(total)),
		AirScore:     int(math.Round(air)),
		NoiseScore:   int(math.Round(noise)),
		WeatherScore: int(math.Round(weather)),
	}
}

func precipitationPenalty(mm float64) float64 {
	switch {
	case mm > 50:
		return 25
	case mm > 20:
		return 12
	case mm > 5:
		return 5
	default:
		return 0
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
