package lark

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTextContent_EscapesSpecialCharacters(t *testing.T) {
	got, err := textContent("MR-2024-0001 \"urgent\"\nline two")
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"MR-2024-0001 \"urgent\"\nline two"}`, got)
}

func TestMessenger_SendTextValidatesInput(t *testing.T) {
	m := NewMessenger(NewClient(Config{AppID: "cli_test", AppSecret: "secret"}), zap.NewNop())

	assert.Error(t, m.SendText(context.Background(), "email", "", "hello"))
	assert.Error(t, m.SendText(context.Background(), "email", "a@example.com", ""))
}

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{AppID: "cli_x"}.Enabled())
	assert.True(t, Config{AppID: "cli_x", AppSecret: "s"}.Enabled())
}
