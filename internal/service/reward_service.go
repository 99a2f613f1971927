package service

import (
	"errors"
	"strings"
	"time"

	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/models"
	"github.com/greenmess-next/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RewardService 绿色积分服务
type RewardService struct {
	rewardRepo repository.RewardRepository
	userRepo   repository.UserRepository
}

// NewRewardService 创建绿色积分服务
func NewRewardService(rewardRepo repository.RewardRepository, userRepo repository.UserRepository) *RewardService {
	return &RewardService{
		rewardRepo: rewardRepo,
		userRepo:   userRepo,
	}
}

// RewardCreditInput 积分发放输入
type RewardCreditInput struct {
	UserID uint
	Type   string
	Amount int64
	RefID  uint
	Remark string
}

// Credit 发放或扣减积分
// 同一 (用户, 类型, 关联单据) 只入账一次，重复投递返回已有流水。
func (s *RewardService) Credit(input RewardCreditInput) (*models.RewardTransaction, error) {
	if input.UserID == 0 {
		return nil, ErrNotFound
	}
	if input.Amount == 0 {
		return nil, NewValidationError("amount")
	}
	txnType := strings.ToLower(strings.TrimSpace(input.Type))
	if txnType == "" {
		txnType = constants.RewardTxnTypeAdminAdjust
	}

	var txnResult *models.RewardTransaction
	if err := s.rewardRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.rewardRepo.WithTx(tx)

		if input.RefID > 0 {
			exists, err := repo.GetByTypeAndRef(input.UserID, txnType, input.RefID)
			if err != nil {
				return err
			}
			if exists != nil {
				txnResult = exists
				return nil
			}
		}

		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, input.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		now := time.Now()
		balance := user.GreenCredits + input.Amount
		if balance < 0 {
			return NewValidationError("amount")
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"green_credits": balance,
			"updated_at":    now,
		}).Error; err != nil {
			return err
		}

		txn := &models.RewardTransaction{
			UserID:    user.ID,
			Type:      txnType,
			Amount:    input.Amount,
			Balance:   balance,
			RefID:     input.RefID,
			Remark:    strings.TrimSpace(input.Remark),
			CreatedAt: now,
		}
		if err := repo.Create(txn); err != nil {
			return err
		}
		txnResult = txn
		return nil
	}); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
			return nil, err
		}
		return nil, wrapStoreError(err)
	}
	return txnResult, nil
}

// ListTransactions 查询积分流水
func (s *RewardService) ListTransactions(filter repository.RewardListFilter) ([]models.RewardTransaction, int64, error) {
	txns, total, err := s.rewardRepo.List(filter)
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	return txns, total, nil
}

// GetBalance 查询用户当前积分余额
func (s *RewardService) GetBalance(userID uint) (int64, error) {
	if userID == 0 {
		return 0, ErrNotFound
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return 0, wrapStoreError(err)
	}
	if user == nil {
		return 0, ErrNotFound
	}
	return user.GreenCredits, nil
}
