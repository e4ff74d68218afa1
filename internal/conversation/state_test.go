package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepgram/chatgate/internal/services/chat/models"
)

func intPtr(i int) *int { return &i }

func TestNewStartsWithGreeting(t *testing.T) {
	s := New("c1", "New chat")
	require.Len(t, s.Messages, 1)
	assert.Equal(t, models.RoleAssistant, s.Messages[0].Role)
	assert.Equal(t, Greeting, s.Messages[0].Content)
	assert.False(t, s.Streaming)
}

func TestLoad(t *testing.T) {
	s := Load("c1", "Plans", []models.StoredMessage{
		{Role: "human", Content: "hi"},
		{Type: "ai", Content: "hello"},
		{Role: "system", Content: "dropped"},
		{Role: "user", Content: "again"},
	})
	assert.Equal(t, []models.ChatMessage{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
		{Role: models.RoleUser, Content: "again"},
	}, s.Messages)
	assert.Equal(t, "Plans", s.Title)

	empty := Load("c2", "New chat", nil)
	require.Len(t, empty.Messages, 1)
	assert.Equal(t, Greeting, empty.Messages[0].Content)
}

func TestStreamLifecycle(t *testing.T) {
	s := New("c1", "")
	s, err := s.Submit("What is RAG?")
	require.NoError(t, err)
	assert.True(t, s.Streaming)
	require.Len(t, s.Messages, 3)
	assert.Equal(t, models.ChatMessage{Role: models.RoleUser, Content: "What is RAG?"}, s.Messages[1])

	for _, f := range []string{"Retrieval ", "augmented ", "generation"} {
		s = s.AppendFragment(f)
	}
	assert.Equal(t, "Retrieval augmented generation", s.Answer())

	s = s.Complete()
	assert.False(t, s.Streaming)

	// frozen once complete
	s = s.AppendFragment("late")
	assert.Equal(t, "Retrieval augmented generation", s.Answer())

	s = s.AttachSources([]models.Source{{Source: "rag.pdf", Page: intPtr(4)}})
	require.Len(t, s.Messages[2].Sources, 1)
	assert.Equal(t, 4, *s.Messages[2].Sources[0].Page)
	assert.Empty(t, s.Messages[0].Sources)
}

func TestSubmitWhileStreaming(t *testing.T) {
	s, err := New("c1", "").Submit("first")
	require.NoError(t, err)

	again, err := s.Submit("second")
	assert.ErrorIs(t, err, ErrStreamOpen)
	assert.Equal(t, s, again)

	// fragments and sources still land on the first answer
	s = s.AppendFragment("one").Complete().AttachSources([]models.Source{{Source: "a"}})
	require.Len(t, s.Messages, 3)
	assert.Equal(t, "one", s.Messages[2].Content)
	assert.Equal(t, "a", s.Messages[2].Sources[0].Source)
}

func TestSubmitEmptyInput(t *testing.T) {
	s := New("c1", "")
	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := s.Submit(input)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
}

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	before, err := New("c1", "").Submit("q")
	require.NoError(t, err)
	before = before.AppendFragment("a")

	after := before.AppendFragment("b").AttachSources([]models.Source{{Source: "s"}}).Rename("t")
	assert.Equal(t, "a", before.Answer())
	assert.Empty(t, before.Messages[2].Sources)
	assert.Equal(t, "", before.Title)
	assert.Equal(t, "ab", after.Answer())
}

func TestAttachSourcesScansFromEnd(t *testing.T) {
	s := Load("c1", "t", []models.StoredMessage{
		{Role: "ai", Content: "old answer"},
		{Role: "human", Content: "q"},
		{Role: "ai", Content: "new answer"},
		{Role: "human", Content: "follow-up"},
	})
	s = s.AttachSources([]models.Source{{Source: "x"}})
	assert.Empty(t, s.Messages[0].Sources)
	assert.Len(t, s.Messages[2].Sources, 1)
}

func TestTitles(t *testing.T) {
	for _, title := range []string{"", "New chat", "  untitled chat ", "Chat"} {
		assert.True(t, IsDefaultTitle(title), title)
	}
	assert.False(t, IsDefaultTitle("Chat about RAG"))

	assert.Equal(t, "How do I ingest PDFs?", SuggestTitle("  How do I\ningest   PDFs?  "))
	long := SuggestTitle(strings.Repeat("日本", 30))
	assert.Equal(t, 40, len([]rune(long)))

	assert.Equal(t, UntitledChat, NormalizeTitle("   "))
	assert.Equal(t, "Plans", NormalizeTitle(" Plans "))
	assert.Equal(t, 80, len([]rune(NormalizeTitle(strings.Repeat("x", 100)))))
}
