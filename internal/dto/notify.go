package dto

// NotifyRequest is the wire payload accepted by the bot notify endpoint.
// StudentID and AssignmentTitle are mandatory; the display strings fall
// back to generic placeholders when absent.
type NotifyRequest struct {
	StudentID       string `json:"studentId"`
	StudentName     string `json:"studentName"`
	AssignmentTitle string `json:"assignmentTitle"`
	RoomName        string `json:"roomName"`
}

// NotifyResponse is returned on successful delivery. The endpoint does not
// use the common response envelope: callers contractually read dmRoomId on
// success and the top-level error string on failure.
type NotifyResponse struct {
	Success  bool   `json:"success"`
	DMRoomID string `json:"dmRoomId"`
}

// NotifyError is the error payload of the notify endpoint.
type NotifyError struct {
	Error string `json:"error"`
}
