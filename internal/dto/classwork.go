package dto

// ClassworkItem summarizes one assignment for the room's classwork view:
// due state, score, and how many distinct students have submitted.
type ClassworkItem struct {
	AssignmentID    string   `json:"assignment_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	MaxScore        *float64 `json:"max_score,omitempty"`
	DueDate         string   `json:"due_date,omitempty"`
	Overdue         bool     `json:"overdue"`
	SubmissionCount int      `json:"submission_count"`
	PostedBy        string   `json:"posted_by"`
	AttachmentURL   string   `json:"attachment_url,omitempty"`
}
