package models

// Question kinds supported in exam/quiz payloads.
const (
	QuestionMCQ       = "mcq"
	QuestionTrueFalse = "true-false"
	QuestionOpenEnded = "open-ended"
)

// Question is one item of a timed assessment, stored as JSON on the
// assignment. CorrectIndex applies to mcq, CorrectBool to true-false;
// open-ended questions are graded by hand later.
type Question struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options,omitempty"`
	CorrectIdx  *int     `json:"correct_index,omitempty"`
	CorrectBool *bool    `json:"correct_bool,omitempty"`
	Points      float64  `json:"points"`
}

// Answer is a student's response to one question, stored as JSON on the
// submission. Correct and Points stay nil for open-ended questions until a
// teacher grades them.
type Answer struct {
	QuestionID string   `json:"question_id"`
	Value      string   `json:"value"`
	Correct    *bool    `json:"correct,omitempty"`
	Points     *float64 `json:"points,omitempty"`
}
