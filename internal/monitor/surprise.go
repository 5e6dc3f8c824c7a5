package monitor

// The two surprise strategies have deliberately different first-observation
// behavior and coexist as separately named functions. Frequency novelty
// scores a never-seen signature exactly 1.0; Laplace smoothing pulls the
// first observation below 1.0 as a function of the assumed vocabulary.

// FrequencySurprise is 1 - priorCount/totalBefore. totalBefore is the event
// count as it stood before the current observation. A totalBefore of zero
// (first event ever) scores 1.0.
func FrequencySurprise(priorCount, totalBefore int) float64 {
	if totalBefore <= 0 || priorCount <= 0 {
		return 1.0
	}
	return 1.0 - float64(priorCount)/float64(totalBefore)
}

// LaplaceSurprise is 1 - (priorCount+1)/(totalBefore+vocabSize), the
// add-one smoothed improbability of the signature. vocabSize below 1 is
// clamped to 1.
func LaplaceSurprise(priorCount, totalBefore, vocabSize int) float64 {
	if vocabSize < 1 {
		vocabSize = 1
	}
	return 1.0 - float64(priorCount+1)/float64(totalBefore+vocabSize)
}
