package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusDescriptorCoversEveryStatus(t *testing.T) {
	for _, status := range AllSubmissionStatuses() {
		descriptor, ok := StatusDescriptor(status)
		require.True(t, ok, "missing descriptor for status %q", status)
		require.NotEmpty(t, descriptor.Label)
		require.NotEmpty(t, descriptor.Variant)
	}
}

func TestStatusDescriptorRejectsUnknown(t *testing.T) {
	_, ok := StatusDescriptor(SubmissionStatus("archived"))
	require.False(t, ok)
}

func TestTypeDescriptorCoversEveryType(t *testing.T) {
	for _, questionType := range AllQuestionTypes() {
		descriptor, ok := TypeDescriptor(questionType)
		require.True(t, ok, "missing descriptor for type %q", questionType)
		require.NotEmpty(t, descriptor.Label)
		require.NotEmpty(t, descriptor.Variant)
	}
}

func TestTypeDescriptorRejectsUnknown(t *testing.T) {
	_, ok := TypeDescriptor(QuestionType("grammar"))
	require.False(t, ok)
}

func TestAnswerAnalysisDecoding(t *testing.T) {
	answer := Answer{AIAnalysis: []byte(`{"score":82,"feedback":"solid reasoning","suggestions":["expand conclusion"]}`)}
	analysis, ok := answer.Analysis()
	require.True(t, ok)
	require.Equal(t, 82.0, analysis.Score)
	require.Equal(t, "solid reasoning", analysis.Feedback)
	require.Equal(t, []string{"expand conclusion"}, analysis.Suggestions)

	_, ok = Answer{}.Analysis()
	require.False(t, ok)
}
