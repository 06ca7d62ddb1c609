package facerec

import "math"

// AgeClasses is the number of classes produced by the age network, one per year.
const AgeClasses = 81

// GenderClasses is the number of classes produced by the gender network.
const GenderClasses = 2

// AgeEstimate is the expected age over the age network's distribution.
type AgeEstimate struct {
	Age        float64 `json:"age"`
	Years      int     `json:"years"`
	Confidence float64 `json:"confidence"`
}

// EstimateAge returns the probability weighted mean class index and, as
// confidence, the largest single class probability.
func EstimateAge(probs []float32) AgeEstimate {
	var est AgeEstimate
	for i, p := range probs {
		est.Age += float64(i) * float64(p)
		est.Confidence = math.Max(est.Confidence, float64(p))
	}
	est.Years = int(math.Round(est.Age))
	return est
}

// Gender is the output class of the gender network.
type Gender int

const (
	Male Gender = iota
	Female
)

func (g Gender) String() string {
	if g == Female {
		return "female"
	}
	return "male"
}

// GenderEstimate is the most likely gender and its probability.
type GenderEstimate struct {
	Gender     Gender  `json:"-"`
	Label      string  `json:"gender"`
	Confidence float64 `json:"confidence"`
}

func estimateGender(probs []float32) GenderEstimate {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	g := Gender(best)
	est := GenderEstimate{Gender: g, Label: g.String()}
	if len(probs) > 0 {
		est.Confidence = float64(probs[best])
	}
	return est
}
