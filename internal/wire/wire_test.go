package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notaro/notaro/internal/model"
)

var at = time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

func sampleNote(id string, version int64) model.Note {
	return model.Note{
		ID:        id,
		Title:     "Meeting Notes",
		Content:   "Discuss sync logic",
		Folder:    model.FolderOf("work"),
		CreatedAt: at,
		UpdatedAt: at,
		Version:   version,
	}
}

func TestMarshal_Shapes(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"ack has no payload", Ack{}, `{"type":"Ack"}`},
		{"pull request", PullRequest{SinceVersion: 3}, `{"type":"PullRequest","payload":{"since_version":3}}`},
		{"push nil changes", PushUpdates{}, `{"type":"PushUpdates","payload":{"changes":[]}}`},
		{"pull response nil changes", PullResponse{CurrentVersion: 7}, `{"type":"PullResponse","payload":{"changes":[],"current_version":7}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(tt.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestMarshal_NoteFields(t *testing.T) {
	unfiled := sampleNote("n-1", 2)
	unfiled.Folder = nil

	data, err := Marshal(PushUpdates{Changes: []model.Note{unfiled}})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "PushUpdates",
		"payload": {"changes": [{
			"id": "n-1",
			"title": "Meeting Notes",
			"content": "Discuss sync logic",
			"folder": null,
			"is_pinned": false,
			"created_at": "2024-03-01T09:30:00Z",
			"updated_at": "2024-03-01T09:30:00Z",
			"version": 2,
			"is_deleted": false
		}]}
	}`, string(data))
}

func TestMarshal_Nil(t *testing.T) {
	_, err := Marshal(nil)
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	msgs := []Message{
		PullRequest{SinceVersion: 0},
		PullRequest{SinceVersion: 42},
		PullResponse{Changes: []model.Note{sampleNote("a", 1), sampleNote("b", 3)}, CurrentVersion: 3},
		PushUpdates{Changes: []model.Note{sampleNote("c", 5)}},
		Ack{},
	}

	for _, msg := range msgs {
		t.Run(string(msg.Type()), func(t *testing.T) {
			data, err := Marshal(msg)
			require.NoError(t, err)

			got, err := Unmarshal(data)
			require.NoError(t, err)
			assert.Equal(t, msg, got)
		})
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"unknown type", `{"type":"Gossip","payload":{}}`, ErrUnknownType},
		{"missing type", `{"payload":{}}`, ErrUnknownType},
		{"missing payload", `{"type":"PullRequest"}`, ErrMissingPayload},
		{"null payload", `{"type":"PushUpdates","payload":null}`, ErrMissingPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUnmarshal_Malformed(t *testing.T) {
	_, err := Unmarshal([]byte(`{"type":`))
	assert.Error(t, err)

	_, err = Unmarshal([]byte(`{"type":"PullRequest","payload":{"since_version":"three"}}`))
	assert.Error(t, err)
}

func TestUnmarshal_AckIgnoresPayload(t *testing.T) {
	msg, err := Unmarshal([]byte(`{"type":"Ack","payload":{"extra":true}}`))
	require.NoError(t, err)
	assert.Equal(t, Ack{}, msg)
}

func TestValidate(t *testing.T) {
	noID := sampleNote("", 1)
	zeroVersion := sampleNote("x", 0)
	noTime := sampleNote("y", 1)
	noTime.UpdatedAt = time.Time{}

	tests := []struct {
		name    string
		msg     Message
		wantErr string
	}{
		{"ack", Ack{}, ""},
		{"pull request", PullRequest{SinceVersion: 0}, ""},
		{"valid push", PushUpdates{Changes: []model.Note{sampleNote("a", 1)}}, ""},
		{"empty push", PushUpdates{}, ""},
		{"negative since", PullRequest{SinceVersion: -1}, "since_version must be at least 0"},
		{"negative current", PullResponse{CurrentVersion: -2}, "current_version must be at least 0"},
		{"empty id", PushUpdates{Changes: []model.Note{sampleNote("a", 1), noID}}, "changes[1].id is required"},
		{"zero version", PullResponse{Changes: []model.Note{zeroVersion}}, "changes[0].version must be at least 1"},
		{"zero timestamp", PushUpdates{Changes: []model.Note{noTime}}, "changes[0].updated_at must be set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.msg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidMessage)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ErrInvalidMessage)
}

type nameVisitor struct{}

func (nameVisitor) PullRequest(m PullRequest) string   { return "pull request" }
func (nameVisitor) PullResponse(m PullResponse) string { return "pull response" }
func (nameVisitor) PushUpdates(m PushUpdates) string   { return "push updates" }
func (nameVisitor) Ack(Ack) string                     { return "ack" }

func TestVisit(t *testing.T) {
	assert.Equal(t, "pull request", Visit[string](PullRequest{}, nameVisitor{}))
	assert.Equal(t, "pull response", Visit[string](PullResponse{}, nameVisitor{}))
	assert.Equal(t, "push updates", Visit[string](PushUpdates{}, nameVisitor{}))
	assert.Equal(t, "ack", Visit[string](Ack{}, nameVisitor{}))

	assert.Panics(t, func() { Visit[string](nil, nameVisitor{}) })
	assert.Panics(t, func() { Visit[string](&Ack{}, nameVisitor{}) })
}

func TestChanges(t *testing.T) {
	batch := []model.Note{sampleNote("a", 1)}

	assert.Equal(t, batch, Changes(PushUpdates{Changes: batch}))
	assert.Equal(t, batch, Changes(PullResponse{Changes: batch}))
	assert.Nil(t, Changes(PullRequest{}))
	assert.Nil(t, Changes(Ack{}))
}
