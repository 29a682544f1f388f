package grading

import "strings"

// UnknownSchool groups results that carry no school.
const UnknownSchool = "Unknown"

// Attempt is the slice of a stored result the statistics need.
type Attempt struct {
	Score  int
	School string
}

type SchoolStat struct {
	Count      int     `json:"count"`
	TotalScore int     `json:"totalScore"`
	AvgScore   float64 `json:"avgScore"`
}

type Statistics struct {
	TotalAttempts int                   `json:"totalAttempts"`
	AverageScore  float64               `json:"averageScore"`
	MaxScore      int                   `json:"maxScore"`
	MinScore      int                   `json:"minScore"`
	PassRate      float64               `json:"passRate"`
	SchoolStats   map[string]SchoolStat `json:"schoolStats"`
}

// Summarize aggregates the attempts of one exam with questionCount questions.
func Summarize(attempts []Attempt, questionCount int) Statistics {
	st := Statistics{SchoolStats: map[string]SchoolStat{}}
	if len(attempts) == 0 {
		return st
	}

	passMark := float64(questionCount) * PassRatio
	sum, passed := 0, 0
	st.MaxScore = attempts[0].Score
	st.MinScore = attempts[0].Score
	for _, a := range attempts {
		sum += a.Score
		if a.Score > st.MaxScore {
			st.MaxScore = a.Score
		}
		if a.Score < st.MinScore {
			st.MinScore = a.Score
		}
		if float64(a.Score) >= passMark {
			passed++
		}

		school := strings.TrimSpace(a.School)
		if school == "" {
			school = UnknownSchool
		}
		ss := st.SchoolStats[school]
		ss.Count++
		ss.TotalScore += a.Score
		st.SchoolStats[school] = ss
	}
	for name, ss := range st.SchoolStats {
		ss.AvgScore = Round2(float64(ss.TotalScore) / float64(ss.Count))
		st.SchoolStats[name] = ss
	}

	n := float64(len(attempts))
	st.TotalAttempts = len(attempts)
	st.AverageScore = Round2(float64(sum) / n)
	st.PassRate = Round2(float64(passed) / n * 100)
	return st
}
