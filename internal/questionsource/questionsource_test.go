package questionsource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/questionsource/llm"
)

func registryWith(provider llm.Provider) *llm.Registry {
	return llm.NewRegistry([]string{"mock"}, map[string]llm.Provider{"mock": provider})
}

const validBatch = `[
	{"id":0,"text":"2+2?","type":"short_answer","answer":"4"},
	{"id":1,"text":"Capital of France?","type":"multiple_choice","options":["Berlin","Paris"],"answer":"B"},
	{"id":2,"text":"Sky is blue","type":"true_false","answer":"true"}
]`

func TestFetch_HappyPath_ReassignsIDs(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: []byte(validBatch)})
	src := New(registryWith(mock))

	got, err := src.Fetch(context.Background(), "general", 3, entity.QuestionShortAnswer, entity.DifficultyEasy, "", "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, q := range got {
		assert.Equal(t, i, q.ID, "id должен быть переприсвоен по порядку 0..n-1")
	}
}

func TestFetch_RepairsUnparsedAnswerWhenOptionsPresent(t *testing.T) {
	raw := `[{"id":0,"text":"x?","type":"multiple_choice","options":["a","b"],"answer":"__unparsed__"}]`
	mock := llm.NewMockProvider(llm.MockResponse{Content: []byte(raw)})
	src := New(registryWith(mock))

	got, err := src.Fetch(context.Background(), "t", 1, entity.QuestionMultipleChoice, entity.DifficultyEasy, "", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Degraded)
	assert.Equal(t, "a", got[0].Answer)
}

func TestFetch_DropsUnrepairableQuestion(t *testing.T) {
	raw := `[
		{"id":0,"text":"x?","type":"short_answer","answer":"__unparsed__"},
		{"id":1,"text":"y?","type":"short_answer","answer":"fine"}
	]`
	mock := llm.NewMockProvider(llm.MockResponse{Content: []byte(raw)})
	src := New(registryWith(mock))

	got, err := src.Fetch(context.Background(), "t", 2, entity.QuestionShortAnswer, entity.DifficultyEasy, "", "")
	require.NoError(t, err)
	require.Len(t, got, 1, "вопрос без options, который нельзя починить, должен быть отброшен")
	assert.Equal(t, "fine", got[0].Answer)
}

func TestFetch_AllUnusableFailsWithGenerationInvalid(t *testing.T) {
	raw := `[{"id":0,"text":"","type":"short_answer","answer":"x"}]`
	mock := llm.NewMockProvider(llm.MockResponse{Content: []byte(raw)})
	src := New(registryWith(mock))

	_, err := src.Fetch(context.Background(), "t", 1, entity.QuestionShortAnswer, entity.DifficultyEasy, "", "")
	require.Error(t, err)
}

func TestFetch_NoProvidersFailsWithGenerationUnavailable(t *testing.T) {
	src := New(llm.NewRegistry(nil, nil))
	_, err := src.Fetch(context.Background(), "t", 1, entity.QuestionShortAnswer, entity.DifficultyEasy, "", "")
	require.Error(t, err)
}

func TestFetch_RotatesProviderOnFailure(t *testing.T) {
	failing := llm.NewMockProvider() // очередь пуста -> ErrProviderUnavailable
	succeeding := llm.NewMockProvider(llm.MockResponse{Content: []byte(validBatch)})

	reg := llm.NewRegistry([]string{"a", "b"}, map[string]llm.Provider{
		"a": namedProvider{failing, "a"},
		"b": namedProvider{succeeding, "b"},
	})
	src := New(reg)

	got, err := src.Fetch(context.Background(), "t", 3, entity.QuestionShortAnswer, entity.DifficultyEasy, "", "a")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

type namedProvider struct {
	*llm.MockProvider
	name string
}

func (n namedProvider) Name() string { return n.name }
