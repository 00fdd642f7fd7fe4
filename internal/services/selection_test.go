package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionStore_Toggle(t *testing.T) {
	s := NewSelectionStore()

	sel := s.Toggle("sess-1", "1", "2", "3")
	assert.Equal(t, []string{"1", "2", "3"}, sel.IDs)

	sel = s.Toggle("sess-1", "2")
	assert.Equal(t, []string{"1", "3"}, sel.IDs)

	assert.Empty(t, s.Get("sess-2").IDs)
}

func TestSelectionStore_ReplaceDedupes(t *testing.T) {
	s := NewSelectionStore()

	sel := s.Replace("sess-1", []string{"4", "4", "", "5"})
	assert.Equal(t, []string{"4", "5"}, sel.IDs)
}

func TestSelectionStore_ToggleResetsPendingDelete(t *testing.T) {
	s := NewSelectionStore()
	s.Toggle("sess-1", "1")

	assert.True(t, s.MarkDeletePending("sess-1").DeletePending)
	assert.False(t, s.Toggle("sess-1", "2").DeletePending)
}

func TestSelectionStore_Clear(t *testing.T) {
	s := NewSelectionStore()
	s.Toggle("sess-1", "1")
	s.MarkDeletePending("sess-1")

	s.Clear("sess-1")

	sel := s.Get("sess-1")
	assert.Empty(t, sel.IDs)
	assert.False(t, sel.DeletePending)
}

func TestSelectionStore_GetReturnsCopy(t *testing.T) {
	s := NewSelectionStore()
	s.Toggle("sess-1", "1")

	sel := s.Get("sess-1")
	sel.IDs[0] = "changed"

	assert.Equal(t, []string{"1"}, s.Get("sess-1").IDs)
}
