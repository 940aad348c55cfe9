package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/presenter"
	"github.com/yourusername/quiz-engine/internal/scorer"
)

func TestLoad_NoFile_AppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Solo.MaxQuestions, "дефолт solo.max_questions должен совпадать с §3")
	assert.Equal(t, 5, cfg.Group.MaxQuestions)
	assert.Equal(t, 5, cfg.QuestionTimeout.MinS)
	assert.Equal(t, 120, cfg.QuestionTimeout.MaxS)
	assert.Equal(t, []string{"anthropic", "openai", "google"}, cfg.Provider.Order)
	assert.Equal(t, 64, cfg.AnswerChannelCapacity)
}

func TestLoad_MissingFile_FallsBackToDefaultsWithoutError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err, "отсутствующий файл конфигурации не должен быть фатальным")
	assert.Equal(t, 20, cfg.Solo.MaxQuestions)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
solo:
  max_questions: 8
group:
  max_questions: 3
question_timeout:
  min_s: 10
  max_s: 60
session:
  inactivity_s: 900
  hard_cap_s: 1800
  sweep_interval_s: 60
provider:
  order: ["mock"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Solo.MaxQuestions)
	assert.Equal(t, 3, cfg.Group.MaxQuestions)
	assert.Equal(t, 10, cfg.QuestionTimeout.MinS)
	assert.Equal(t, 60, cfg.QuestionTimeout.MaxS)
	assert.Equal(t, 900, cfg.Session.InactivityS)
	assert.Equal(t, []string{"mock"}, cfg.Provider.Order)
}

func TestLoad_RejectsInvalidTimeoutBounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
question_timeout:
  min_s: 100
  max_s: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := Load(path)
	assert.Error(t, err, "max_s меньше min_s должно быть отклонено")
}

func TestLoad_RejectsEmptyProviderOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  order: []\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err, "пустой provider.order должен быть отклонён")
}

func TestConfig_EngineConfig_ProjectsSecondsToDurations(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	ec := cfg.EngineConfig()
	assert.Equal(t, entity.DefaultClampLimits(), ec.ClampLimits)
	assert.Equal(t, 1800*1e9, float64(ec.InactivityLimit))
	assert.Equal(t, 64, ec.RegistryCapacity)
	assert.Equal(t, 1200*1e9, float64(ec.IdleNudgeThreshold), "дефолт session.idle_nudge_s = 20 минут")
}

func TestConfig_ApplyOverrides_SetsPresenterCadenceAndScoring(t *testing.T) {
	defer func() { presenter.ActiveCadence = presenter.DefaultCadence() }()
	originalScoring := scorer.BaseByDifficulty
	defer func() { scorer.BaseByDifficulty = originalScoring }()

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Timers.FastIntervalS = 5
	cfg.Scoring.BaseByDifficulty[string(entity.DifficultyEasy)] = 99

	cfg.ApplyOverrides()

	assert.Equal(t, 5, presenter.ActiveCadence.FastIntervalS)
	assert.Equal(t, 99, scorer.BaseByDifficulty[entity.DifficultyEasy])
}
