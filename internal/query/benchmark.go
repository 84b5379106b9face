package query

// BenchmarkQuestion is a canonical question used for cache warming and token reports.
type BenchmarkQuestion struct {
	ID          string `json:"id"`
	Question    string `json:"question"`
	GroundTruth string `json:"groundTruth"`
}

// BenchmarkQuestions returns the five canonical benchmark questions.
func BenchmarkQuestions() []BenchmarkQuestion {
	return []BenchmarkQuestion{
		{
			ID:          "aggressive-driving",
			Question:    "Tell me about aggressive driving behaviors around campus",
			GroundTruth: "Should identify Klaus and Student Center as hotspots, mention hard braking or rapid acceleration",
		},
		{
			ID:          "dwell-time",
			Question:    "Which parts of campus have the highest dwell time associated with them",
			GroundTruth: "Should mention long pauses near Student Center, CRC, or Klaus with durations over 2 minutes",
		},
		{
			ID:          "moderate-behavior",
			Question:    "How many instances of moderate driving behavior can be found on campus",
			GroundTruth: "Should provide a numeric count of 'Moderate' behavior events from the dataset",
		},
		{
			ID:          "route-efficiency",
			Question:    "How efficient was the bus route",
			GroundTruth: "Should mention efficiency ratio and compare traveled distance to straight-line distance",
		},
		{
			ID:          "tech-square-patterns",
			Question:    "What are the driving patterns like around Tech Square",
			GroundTruth: "Should reference Tech Square and describe behavior types (moderate, aggressive) found there",
		},
	}
}
