package scoring

import "github.com/okian/gradebook/internal/domain/model"

// Bucket boundaries of the national grading scale.
const (
	MinPassing  = 60.0
	MinGood     = 75.0
	MinPerfect  = 90.0
	MaxScore    = 100.0
	LowAverage  = 65.0 // group reports list students below this average
	HighAverage = 95.0 // and above this one
	bandThree   = "3 points"
	bandFour    = "4 points"
	bandFive    = "5 points"
	bandOther   = "other"
)

// Bucket maps a score to its letter grade: [60,75) Good enough, [75,90) Good,
// [90,100] Perfect, anything else (including NaN) Error.
func Bucket(score float64) model.Grade {
	switch {
	case score >= MinPassing && score < MinGood:
		return model.GradeGoodEnough
	case score >= MinGood && score < MinPerfect:
		return model.GradeGood
	case score >= MinPerfect && score <= MaxScore:
		return model.GradePerfect
	default:
		return model.GradeError
	}
}

// Band maps an average to the performance band used by group distributions.
func Band(average float64) string {
	switch Bucket(average) {
	case model.GradeGoodEnough:
		return bandThree
	case model.GradeGood:
		return bandFour
	case model.GradePerfect:
		return bandFive
	default:
		return bandOther
	}
}

// Bands lists the band labels in display order.
func Bands() []string {
	return []string{bandThree, bandFour, bandFive, bandOther}
}
