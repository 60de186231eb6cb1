package services

import (
	"context"
	"errors"
	"fmt"

	"luckyspin/models"
	"luckyspin/monitoring"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TaskService struct {
	Ledger *Ledger
}

func NewTaskService(ledger *Ledger) *TaskService {
	return &TaskService{Ledger: ledger}
}

// TaskView is an active task with the caller's completion state.
type TaskView struct {
	models.Task
	Completed bool `json:"completed"`
}

// Active lists active tasks in display order, flagged with what the account
// already completed.
func (s *TaskService) Active(ctx context.Context, accountID int64) ([]TaskView, error) {
	db := s.Ledger.DB.WithContext(ctx)

	var tasks []models.Task
	if err := db.Where("is_active = ?", true).Order("sort_order ASC, created_at ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}

	var done []string
	err := db.Model(&models.TaskCompletion{}).
		Where("account_id = ?", accountID).
		Pluck("task_id", &done).Error
	if err != nil {
		return nil, err
	}
	completed := make(map[string]bool, len(done))
	for _, id := range done {
		completed[id] = true
	}

	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, TaskView{Task: t, Completed: completed[t.ID]})
	}
	return views, nil
}

// TaskReward is what CompleteTask credited.
type TaskReward struct {
	TaskID  string          `json:"task_id"`
	Rewards models.Amounts  `json:"rewards"`
	Plays   int             `json:"plays"`
	Account *models.Account `json:"account"`
}

// CompleteTask records a one-time completion and credits the task reward.
// ref is either the task id or its slug.
func (s *TaskService) CompleteTask(ctx context.Context, accountID int64, ref string) (*TaskReward, error) {
	var out TaskReward
	err := s.Ledger.Do(ctx, func(uow *UnitOfWork) error {
		acc, err := uow.Account(accountID)
		if err != nil {
			return err
		}
		if acc.IsBanned {
			return ErrAccountBanned
		}

		var task models.Task
		err = uow.tx.Where("(id = ? OR slug = ?) AND is_active = ?", ref, ref, true).First(&task).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		if err != nil {
			return err
		}

		var done int64
		err = uow.tx.Model(&models.TaskCompletion{}).
			Where("task_id = ? AND account_id = ?", task.ID, accountID).
			Count(&done).Error
		if err != nil {
			return err
		}
		if done > 0 {
			return ErrTaskCompleted
		}

		if err := uow.CreditBalances(accountID, task.Rewards()); err != nil {
			return err
		}
		if err := uow.IncrementCounters(accountID, Counters{PlaysAvailable: task.RewardPlays, CompletedTasks: 1}); err != nil {
			return err
		}

		completion := &models.TaskCompletion{
			TaskID:     task.ID,
			AccountID:  accountID,
			RewardEGP:  task.RewardEGP,
			RewardTON:  task.RewardTON,
			RewardUSDT: task.RewardUSDT,
		}
		if err := uow.tx.Create(completion).Error; err != nil {
			return err
		}

		snapshot := *acc
		out = TaskReward{TaskID: task.Slug, Rewards: task.Rewards(), Plays: task.RewardPlays, Account: &snapshot}
		uow.OnCommit(func(context.Context) {
			monitoring.RewardGrantsTotal.WithLabelValues("task").Inc()
			s.Ledger.Log.Debug("task completed",
				zap.Int64("account_id", accountID),
				zap.String("task", task.Slug))
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type CreateTaskInput struct {
	TaskID        string          `json:"task_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	RewardEGP     decimal.Decimal `json:"reward_egp"`
	RewardTON     decimal.Decimal `json:"reward_ton"`
	RewardUSDT    decimal.Decimal `json:"reward_usdt"`
	RewardPlays   int             `json:"reward_plays"`
	TaskType      string          `json:"task_type"`
	RequiredCount int             `json:"required_count"`
	Order         int             `json:"order"`
}

func (s *TaskService) Create(ctx context.Context, adminID string, in CreateTaskInput) (*models.Task, error) {
	if in.Title == "" {
		return nil, ErrInvalidRequest
	}
	id := in.TaskID
	if id == "" {
		id = in.Title
	}
	id = slug.Make(id)
	if id == "" {
		return nil, ErrInvalidRequest
	}

	rewards := models.Amounts{EGP: in.RewardEGP, TON: in.RewardTON, USDT: in.RewardUSDT}
	if rewards.IsNegative() || in.RewardPlays < 0 {
		return nil, ErrInvalidAmount
	}
	if in.TaskType == "" {
		in.TaskType = "manual"
	}
	if in.RequiredCount <= 0 {
		in.RequiredCount = 1
	}

	task := &models.Task{
		Slug:          id,
		Title:         in.Title,
		Description:   in.Description,
		RewardEGP:     in.RewardEGP,
		RewardTON:     in.RewardTON,
		RewardUSDT:    in.RewardUSDT,
		RewardPlays:   in.RewardPlays,
		TaskType:      in.TaskType,
		RequiredCount: in.RequiredCount,
		IsActive:      true,
		SortOrder:     in.Order,
	}
	err := s.Ledger.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		return recordAdminAction(tx, adminID, "create_task", fmt.Sprintf("task_id=%s", task.Slug))
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrTaskSlugTaken
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}
