package model

// Summary counts work items by state.
type Summary struct {
	Total     int
	Pending   int
	Killed    int
	Survived  int
	Exception int
}

// Add counts one record.
func (s *Summary) Add(result *WorkResult) {
	s.Total++

	if result == nil {
		s.Pending++
		return
	}

	switch result.Outcome {
	case Killed:
		s.Killed++
	case Survived:
		s.Survived++
	case Exception:
		s.Exception++
	}
}

// Complete is the number of items with a result.
func (s Summary) Complete() int {
	return s.Total - s.Pending
}

// SurvivalRate is survived/(survived+killed), or 0 when neither occurred.
// Exceptions are not part of the rate.
func (s Summary) SurvivalRate() float64 {
	judged := s.Survived + s.Killed
	if judged == 0 {
		return 0
	}

	return float64(s.Survived) / float64(judged)
}

// OperatorCount is the number of occurrences an operator has in a module.
type OperatorCount struct {
	Module   string
	Operator string
	Count    int
}
