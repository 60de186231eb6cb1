package services

import (
	"context"
	"testing"

	"luckyspin/config"
	"luckyspin/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteTaskOnce(t *testing.T) {
	l, _ := newTestLedger(t, config.DefaultRules())
	s := NewTaskService(l)
	seedAccount(t, l, 1, nil)
	ctx := context.Background()

	task, err := s.Create(ctx, "admin", CreateTaskInput{
		Title:       "Join Our Channel!",
		RewardUSDT:  decimal.RequireFromString("0.25"),
		RewardPlays: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "join-our-channel", task.Slug)

	reward, err := s.CompleteTask(ctx, 1, "join-our-channel")
	require.NoError(t, err)
	assert.Equal(t, 2, reward.Plays)

	acc := mustAccount(t, l, 1)
	assert.Equal(t, 3, acc.PlaysAvailable)
	assert.Equal(t, 1, acc.CompletedTasks)
	assert.True(t, acc.BalanceUSDT.Equal(decimal.RequireFromString("0.25")))

	_, err = s.CompleteTask(ctx, 1, task.ID)
	assert.ErrorIs(t, err, ErrTaskCompleted)
	assert.Equal(t, 1, mustAccount(t, l, 1).CompletedTasks)

	views, err := s.Active(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Completed)

	views, err = s.Active(ctx, 2)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].Completed)
}

func TestCompleteTaskRejections(t *testing.T) {
	l, _ := newTestLedger(t, config.DefaultRules())
	s := NewTaskService(l)
	seedAccount(t, l, 1, func(a *models.Account) { a.IsBanned = true })
	seedAccount(t, l, 2, nil)
	ctx := context.Background()

	_, err := s.Create(ctx, "admin", CreateTaskInput{TaskID: "Follow X", Title: "Follow"})
	require.NoError(t, err)

	_, err = s.CompleteTask(ctx, 1, "follow-x")
	assert.ErrorIs(t, err, ErrAccountBanned)

	_, err = s.CompleteTask(ctx, 2, "unknown")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestCreateTaskValidation(t *testing.T) {
	l, _ := newTestLedger(t, config.DefaultRules())
	s := NewTaskService(l)
	ctx := context.Background()

	_, err := s.Create(ctx, "admin", CreateTaskInput{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = s.Create(ctx, "admin", CreateTaskInput{Title: "Bad", RewardEGP: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	task, err := s.Create(ctx, "admin", CreateTaskInput{Title: "Daily check-in"})
	require.NoError(t, err)
	assert.Equal(t, "manual", task.TaskType)
	assert.Equal(t, 1, task.RequiredCount)

	_, err = s.Create(ctx, "admin", CreateTaskInput{TaskID: "daily check in", Title: "Again"})
	assert.ErrorIs(t, err, ErrTaskSlugTaken)
}
