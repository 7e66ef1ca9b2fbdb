// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vscan-tui/internal/api"
	"github.com/jeranaias/vscan-tui/internal/model"
)

func newManager(t *testing.T, fb *fakeBackend) *Manager {
	t.Helper()
	m := NewManager(fb, nil)
	require.NoError(t, m.Init(context.Background()))
	return m
}

// =============================================================================
// INIT / SELECT
// =============================================================================

func TestManager_InitOpensMostRecent(t *testing.T) {
	fb := newFakeBackend()
	fb.seed("first")
	latest := fb.seed("second")

	m := newManager(t, fb)

	assert.Equal(t, latest, m.ActiveID())
	assert.Equal(t, 0, fb.creates)
	assert.Len(t, m.Conversations(), 2)
}

func TestManager_InitCreatesWhenEmpty(t *testing.T) {
	fb := newFakeBackend()
	m := newManager(t, fb)

	snap := m.Snapshot()
	require.NotNil(t, snap.Active)
	assert.Equal(t, model.DefaultTitle, snap.Active.Title)
	assert.Equal(t, 1, fb.creates)
	assert.Len(t, snap.Conversations, 1)
}

func TestManager_SelectMissingCreatesNew(t *testing.T) {
	fb := newFakeBackend()
	fb.seed("kept")
	m := newManager(t, fb)

	require.NoError(t, m.Select(context.Background(), "gone"))

	snap := m.Snapshot()
	assert.Equal(t, model.DefaultTitle, snap.Active.Title)
	assert.Equal(t, 1, fb.creates)
}

// =============================================================================
// DELETE
// =============================================================================

func TestManager_DeleteActiveSelectsMostRecentRemaining(t *testing.T) {
	fb := newFakeBackend()
	oldest := fb.seed("oldest")
	middle := fb.seed("middle")
	newest := fb.seed("newest")
	m := newManager(t, fb)
	require.Equal(t, newest, m.ActiveID())

	require.NoError(t, m.Delete(context.Background(), newest))

	assert.Equal(t, middle, m.ActiveID())
	assert.Equal(t, []string{middle, oldest}, ids(m.Conversations()))
	assert.Equal(t, 0, fb.creates)
}

func TestManager_DeleteLastCreatesDefault(t *testing.T) {
	fb := newFakeBackend()
	only := fb.seed("only")
	m := newManager(t, fb)

	require.NoError(t, m.Delete(context.Background(), only))

	snap := m.Snapshot()
	require.NotNil(t, snap.Active)
	assert.NotEqual(t, only, snap.Active.ID)
	assert.Equal(t, model.DefaultTitle, snap.Active.Title)
	assert.Equal(t, 1, fb.creates)
	assert.Len(t, snap.Conversations, 1)
}

func TestManager_DeleteInactiveKeepsSelection(t *testing.T) {
	fb := newFakeBackend()
	other := fb.seed("other")
	active := fb.seed("active")
	m := newManager(t, fb)

	require.NoError(t, m.Delete(context.Background(), other))
	assert.Equal(t, active, m.ActiveID())
	assert.Len(t, m.Conversations(), 1)
}

// =============================================================================
// RENAME
// =============================================================================

func TestManager_RenameDuplicateKeepsLocalTitle(t *testing.T) {
	fb := newFakeBackend()
	fb.seed("Taken")
	target := fb.seed("Mine")
	m := newManager(t, fb)

	err := m.Rename(context.Background(), target, "Taken")

	require.Error(t, err)
	assert.True(t, api.IsConflict(err))
	assert.Equal(t, "A conversation with this name already exists.", api.BackendMessage(err))
	assert.Equal(t, "A conversation with this name already exists.", api.UserMessage(err, "rename conversation"))

	got := m.Snapshot()
	assert.Equal(t, "Mine", got.Active.Title)
	for _, c := range got.Conversations {
		if c.ID == target {
			assert.Equal(t, "Mine", c.Title)
		}
	}
}

func TestManager_RenameUpdatesListAndActive(t *testing.T) {
	fb := newFakeBackend()
	id := fb.seed("Before")
	m := newManager(t, fb)

	require.NoError(t, m.Rename(context.Background(), id, "  After  "))

	snap := m.Snapshot()
	assert.Equal(t, "After", snap.Active.Title)
	assert.Equal(t, "After", snap.Conversations[0].Title)
}

func TestManager_RenameEmptyTitle(t *testing.T) {
	fb := newFakeBackend()
	id := fb.seed("x")
	m := newManager(t, fb)

	assert.ErrorIs(t, m.Rename(context.Background(), id, "   "), ErrEmptyTitle)
}

// =============================================================================
// SEND
// =============================================================================

func TestManager_SendStreamsThenReconciles(t *testing.T) {
	fb := newFakeBackend()
	older := fb.seed("older")
	m := newManager(t, fb)
	active := m.ActiveID()
	fb.seed("newer")
	require.NoError(t, m.Refresh(context.Background()))

	fb.chunks = []string{"Hel", "lo wor", "ld"}

	var buffers []string
	var pendingSeen bool
	res, err := m.Send(context.Background(), Outgoing{Text: "hi"}, func(buf string) {
		buffers = append(buffers, buf)
		snap := m.Snapshot()
		assert.True(t, snap.Streaming)
		assert.Equal(t, buf, snap.Buffer)
		last := snap.Messages[len(snap.Messages)-1]
		pendingSeen = last.Pending && last.Content == "hi"
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "Hello wor", "Hello world"}, buffers)
	assert.True(t, pendingSeen, "optimistic user message shown while streaming")
	assert.Equal(t, "Hello world", res.Content)

	snap := m.Snapshot()
	assert.False(t, snap.Streaming)
	assert.Equal(t, "", snap.Buffer)
	require.Len(t, snap.Messages, 2, "user message must not be duplicated")
	assert.Equal(t, "hi", snap.Messages[0].Content)
	assert.False(t, snap.Messages[0].Pending)
	assert.Equal(t, "Hello world", snap.Messages[1].Content)

	assert.Equal(t, active, older)
	assert.Equal(t, older, snap.Conversations[0].ID, "sent-to conversation moves to the top")
	assert.True(t, IsSortedByActivity(snap.Conversations))
}

func TestManager_SendFailureDiscardsBuffer(t *testing.T) {
	fb := newFakeBackend()
	fb.seed("c")
	m := newManager(t, fb)

	fb.chunks = []string{"par", "tial"}
	fb.streamErr = &api.ClientError{Type: api.ErrTypeStream, Message: "stream interrupted", Cause: errors.New("reset")}

	_, err := m.Send(context.Background(), Outgoing{Text: "hi"}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrStreamFailed)
	snap := m.Snapshot()
	assert.False(t, snap.Streaming)
	assert.Equal(t, "", snap.Buffer)
	assert.Empty(t, snap.Messages, "no partial message is kept")
}

func TestManager_ReselectWhileStreamingKeepsPendingMessage(t *testing.T) {
	fb := newFakeBackend()
	id := fb.seed("c")
	m := newManager(t, fb)

	fb.chunks = []string{"Hel", "lo"}

	var during Snapshot
	_, err := m.Send(context.Background(), Outgoing{Text: "hi"}, func(buf string) {
		if buf != "Hel" {
			return
		}
		require.NoError(t, m.Select(context.Background(), id))
		during = m.Snapshot()
	})
	require.NoError(t, err)

	assert.True(t, during.Streaming)
	assert.Equal(t, "Hel", during.Buffer)
	require.Len(t, during.Messages, 1, "optimistic message survives the reload")
	assert.Equal(t, "hi", during.Messages[0].Content)
	assert.True(t, during.Messages[0].Pending)

	snap := m.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "hi", snap.Messages[0].Content)
	assert.False(t, snap.Messages[0].Pending)
	assert.Equal(t, "Hello", snap.Messages[1].Content)
}

func TestManager_SelectOtherWhileStreamingAbandonsReply(t *testing.T) {
	fb := newFakeBackend()
	other := fb.seed("other")
	m := newManager(t, fb)
	fb.seed("newer")
	require.NoError(t, m.Refresh(context.Background()))
	streaming := fb.seed("streaming")
	require.NoError(t, m.Select(context.Background(), streaming))

	fb.chunks = []string{"Hel", "lo"}
	_, err := m.Send(context.Background(), Outgoing{Text: "hi"}, func(buf string) {
		if buf == "Hel" {
			require.NoError(t, m.Select(context.Background(), other))
		}
	})
	require.NoError(t, err)

	snap := m.Snapshot()
	assert.Equal(t, other, snap.Active.ID)
	assert.False(t, snap.Streaming)
	assert.Empty(t, snap.Buffer)
	assert.Empty(t, snap.Messages, "the other conversation gets no optimistic message")
}

func TestManager_SendToMissingConversationCreatesNew(t *testing.T) {
	fb := newFakeBackend()
	id := fb.seed("doomed")
	m := newManager(t, fb)
	require.NoError(t, fb.DeleteConversation(context.Background(), id))

	_, err := m.Send(context.Background(), Outgoing{Text: "hi"}, nil)

	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
	assert.NotEqual(t, id, m.ActiveID())
	assert.Equal(t, 1, fb.creates)
}

func TestManager_SendWithReplyAndAttachment(t *testing.T) {
	fb := newFakeBackend()
	fb.seed("c", model.NewUserMessage("question"), model.NewAssistantMessage("a long answer"))
	m := newManager(t, fb)
	fb.chunks = []string{"ok"}

	reply := 1
	res, err := m.Send(context.Background(), Outgoing{
		Text:       "follow up",
		WebSearch:  true,
		ReplyTo:    &reply,
		Attachment: &model.Attachment{FileID: "f1", DisplayName: "notes.txt"},
	}, nil)

	require.NoError(t, err)
	assert.True(t, res.WebSearchUsed)
	assert.True(t, m.Snapshot().WebSearchUsed)
	require.NotNil(t, fb.lastSend.ReplyTo)
	assert.Equal(t, 1, fb.lastSend.ReplyTo.Index)
	assert.Equal(t, "a long answer", fb.lastSend.ReplyTo.Content)
	assert.True(t, fb.lastSend.ReplyTo.IsCurrentVersion)
	assert.Equal(t, "f1", fb.lastSend.FileID)
	assert.True(t, fb.lastSend.ForceWebSearch)
}

func TestManager_SendRejectsEmpty(t *testing.T) {
	fb := newFakeBackend()
	m := newManager(t, fb)

	_, err := m.Send(context.Background(), Outgoing{Text: "  \n"}, nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

// =============================================================================
// EDIT / VERSIONS
// =============================================================================

func TestManager_EditArchivesAndResetsIndex(t *testing.T) {
	fb := newFakeBackend()
	first := model.NewUserMessage("first")
	first.Versions = []model.Version{{Content: "zeroth"}}
	fb.seed("c", first, model.NewAssistantMessage("reply"))
	m := newManager(t, fb)

	require.Equal(t, 1, m.OlderVersion(0))

	require.NoError(t, m.Edit(context.Background(), 0, "second"))

	snap := m.Snapshot()
	assert.Equal(t, 0, m.VersionIndex(0))
	assert.Equal(t, "second", snap.Messages[0].Shown)
	require.Len(t, snap.Messages[0].Versions, 2)
	assert.Equal(t, "first", snap.Messages[0].Versions[1].Content)
	assert.Equal(t, "3 of 3", snap.Messages[0].VersionLabel)

	assert.Equal(t, 1, m.OlderVersion(0))
	assert.Equal(t, "first", m.Snapshot().Messages[0].Shown)
}

func TestManager_EditRejectsAssistantMessage(t *testing.T) {
	fb := newFakeBackend()
	fb.seed("c", model.NewUserMessage("q"), model.NewAssistantMessage("a"))
	m := newManager(t, fb)

	assert.ErrorIs(t, m.Edit(context.Background(), 1, "x"), ErrNotEditable)
	assert.ErrorIs(t, m.Edit(context.Background(), 0, " "), ErrEmptyMessage)
}

func TestManager_Search(t *testing.T) {
	fb := newFakeBackend()
	fb.seed("Security audit")
	fb.seed("Lunch")
	m := newManager(t, fb)

	results, err := m.Search(context.Background(), "audit")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.MatchTitle, results[0].MatchType)
}
