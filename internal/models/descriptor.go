package models

// Descriptor carries the presentation metadata for an enum value. The mapping
// functions below are exhaustive: an unknown value returns ok=false instead of
// silently falling through to a default badge.
type Descriptor struct {
	Label   string `json:"label"`
	Variant string `json:"variant"`
}

// StatusDescriptor maps a submission status to its badge descriptor.
func StatusDescriptor(status SubmissionStatus) (Descriptor, bool) {
	switch status {
	case SubmissionStatusPending:
		return Descriptor{Label: "Pending", Variant: "warning"}, true
	case SubmissionStatusGraded:
		return Descriptor{Label: "Graded", Variant: "success"}, true
	case SubmissionStatusReviewed:
		return Descriptor{Label: "Reviewed", Variant: "info"}, true
	}
	return Descriptor{}, false
}

// TypeDescriptor maps a question type to its badge descriptor.
func TypeDescriptor(questionType QuestionType) (Descriptor, bool) {
	switch questionType {
	case QuestionTypeWriting:
		return Descriptor{Label: "Writing", Variant: "primary"}, true
	case QuestionTypeSpeaking:
		return Descriptor{Label: "Speaking", Variant: "secondary"}, true
	case QuestionTypeListening:
		return Descriptor{Label: "Listening", Variant: "info"}, true
	case QuestionTypeReading:
		return Descriptor{Label: "Reading", Variant: "success"}, true
	case QuestionTypeMultipleChoice:
		return Descriptor{Label: "Multiple Choice", Variant: "neutral"}, true
	}
	return Descriptor{}, false
}

// AllSubmissionStatuses lists every lifecycle status in order.
func AllSubmissionStatuses() []SubmissionStatus {
	return []SubmissionStatus{
		SubmissionStatusPending,
		SubmissionStatusGraded,
		SubmissionStatusReviewed,
	}
}

// AllQuestionTypes lists every question type in order.
func AllQuestionTypes() []QuestionType {
	return []QuestionType{
		QuestionTypeWriting,
		QuestionTypeSpeaking,
		QuestionTypeListening,
		QuestionTypeReading,
		QuestionTypeMultipleChoice,
	}
}
