package tasks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPDFGenerateTask(t *testing.T) {
	task, err := NewPDFGenerateTask("r1", "u1", "c1")
	require.NoError(t, err)
	require.Equal(t, TypePDFGenerate, task.Type())

	var p PDFGeneratePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	require.Equal(t, PDFGeneratePayload{ResumeID: "r1", UserID: "u1", CorrelationID: "c1"}, p)
}

func TestNewObjectDeleteTask(t *testing.T) {
	task, err := NewObjectDeleteTask("photos/u1/r1/a.png", "c1")
	require.NoError(t, err)
	require.Equal(t, TypePhotoDelete, task.Type())
	require.JSONEq(t, `{"object_key":"photos/u1/r1/a.png","correlation_id":"c1"}`, string(task.Payload()))
}
