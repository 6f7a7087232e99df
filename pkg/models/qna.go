package models

// QnA is a question/answer pair sent to the curation endpoint.
// It is a projection of two thread messages and is never stored in the thread.
type QnA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ReactionPayload is the body of a thumbs-up or edited-answer submission
type ReactionPayload = QnA
