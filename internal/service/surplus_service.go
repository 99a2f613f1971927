package service

import (
	"strings"
	"time"

	"github.com/greenmess-next/internal/constants"
	"github.com/greenmess-next/internal/logger"
	"github.com/greenmess-next/internal/models"
	"github.com/greenmess-next/internal/queue"
	"github.com/greenmess-next/internal/repository"

	"github.com/shopspring/decimal"
)

// SurplusService 余量食物生命周期服务
type SurplusService struct {
	surplusRepo        repository.SurplusRepository
	queueClient        *queue.Client
	expiryHorizonHours int
	collectionCredits  int64
}

// NewSurplusService 创建余量食物服务
func NewSurplusService(surplusRepo repository.SurplusRepository, queueClient *queue.Client, expiryHorizonHours int, collectionCredits int64) *SurplusService {
	if expiryHorizonHours <= 0 {
		expiryHorizonHours = 12
	}
	return &SurplusService{
		surplusRepo:        surplusRepo,
		queueClient:        queueClient,
		expiryHorizonHours: expiryHorizonHours,
		collectionCredits:  collectionCredits,
	}
}

// LogSurplusInput 余量登记输入
type LogSurplusInput struct {
	ReportedBy     uint
	SourceLocation string
	MealCategory   string
	Quantity       decimal.Decimal
	Unit           string
	FoodItems      []models.FoodItem
	ExpiryAt       time.Time
	Notes          string
	Quality        string
	EstimatedValue *decimal.Decimal
}

// 余量状态机允许的迁移，claimed 之后不再受过期清扫影响。
var allowedSurplusTransitions = map[string]map[string]bool{
	constants.SurplusStatusAvailable: {
		constants.SurplusStatusClaimed: true,
		constants.SurplusStatusExpired: true,
	},
	constants.SurplusStatusClaimed: {
		constants.SurplusStatusCollected: true,
	},
}

func surplusTransitionAllowed(from, to string) bool {
	targets, ok := allowedSurplusTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

func containsValue(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// LogSurplus 登记一条余量记录
// 校验一次性收集所有不合法字段，成功后异步推送 surplus-logged 通知。
func (s *SurplusService) LogSurplus(input LogSurplusInput) (*models.SurplusRecord, error) {
	now := time.Now()
	fields := make([]string, 0, 4)

	sourceLocation := strings.TrimSpace(input.SourceLocation)
	if sourceLocation == "" {
		fields = append(fields, "source_location")
	}
	mealCategory := strings.ToLower(strings.TrimSpace(input.MealCategory))
	if !containsValue(constants.SupportedMealCategories, mealCategory) {
		fields = append(fields, "meal_category")
	}
	if !input.Quantity.IsPositive() {
		fields = append(fields, "quantity")
	}
	unit := strings.ToLower(strings.TrimSpace(input.Unit))
	if unit == "" {
		unit = constants.SurplusUnitKG
	}
	if !containsValue(constants.SupportedSurplusUnits, unit) {
		fields = append(fields, "unit")
	}
	if input.ExpiryAt.IsZero() || !input.ExpiryAt.After(now) {
		fields = append(fields, "expiry_at")
	} else if input.ExpiryAt.After(now.Add(time.Duration(s.expiryHorizonHours) * time.Hour)) {
		fields = append(fields, "expiry_at")
	}
	quality := strings.ToLower(strings.TrimSpace(input.Quality))
	if quality == "" {
		quality = constants.SurplusQualityGood
	}
	if !containsValue(constants.SupportedSurplusQualities, quality) {
		fields = append(fields, "quality")
	}
	for _, item := range input.FoodItems {
		if strings.TrimSpace(item.Name) == "" || item.Quantity <= 0 {
			fields = append(fields, "food_items")
			break
		}
	}
	if input.EstimatedValue != nil && input.EstimatedValue.IsNegative() {
		fields = append(fields, "estimated_value")
	}
	if len(fields) > 0 {
		return nil, NewValidationError(fields...)
	}

	record := &models.SurplusRecord{
		MealCategory:   mealCategory,
		SourceLocation: sourceLocation,
		Quantity:       models.NewQuantityFromDecimal(input.Quantity),
		Unit:           unit,
		FoodItems:      input.FoodItems,
		ExpiryAt:       input.ExpiryAt,
		Status:         constants.SurplusStatusAvailable,
		ReportedBy:     input.ReportedBy,
		Notes:          strings.TrimSpace(input.Notes),
		Quality:        quality,
	}
	if input.EstimatedValue != nil {
		value := models.NewQuantityFromDecimal(*input.EstimatedValue)
		record.EstimatedValue = &value
	}

	if err := s.surplusRepo.Create(record); err != nil {
		return nil, wrapStoreError(err)
	}

	if err := s.queueClient.EnqueueSurplusLogged(queue.SurplusLoggedPayload{
		SurplusID:      record.ID,
		SourceLocation: record.SourceLocation,
		MealCategory:   record.MealCategory,
		Quantity:       record.Quantity.String(),
		Unit:           record.Unit,
		ExpiryAt:       record.ExpiryAt,
	}); err != nil {
		logger.Warnw("surplus_logged_enqueue_failed", "surplus_id", record.ID, "error", err)
	}

	return record, nil
}

// ListAvailable 获取可认领的余量记录列表
// 读取时排除已过期记录，不依赖清扫任务的执行时点。
func (s *SurplusService) ListAvailable(filter repository.SurplusListFilter) ([]models.SurplusRecord, int64, error) {
	records, total, err := s.surplusRepo.ListAvailable(filter, time.Now())
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	return records, total, nil
}

// GetSurplus 获取单条余量记录
func (s *SurplusService) GetSurplus(id uint) (*models.SurplusRecord, error) {
	record, err := s.surplusRepo.GetByID(id)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if record == nil {
		return nil, ErrSurplusNotFound
	}
	return record, nil
}

// Claim 认领余量记录
// 依赖单条条件更新保证并发下最多一个认领方成功，
// 竞争失败后回读记录判定具体冲突原因。
func (s *SurplusService) Claim(id uint, actorID uint) (*models.SurplusRecord, error) {
	if actorID == 0 {
		return nil, ErrSurplusForbidden
	}
	now := time.Now()
	affected, err := s.surplusRepo.Claim(id, actorID, now)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if affected == 0 {
		return nil, s.classifyClaimFailure(id, now)
	}

	record, err := s.surplusRepo.GetByID(id)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if record == nil {
		return nil, ErrSurplusNotFound
	}

	if err := s.queueClient.EnqueueSurplusClaimed(queue.SurplusClaimedPayload{
		SurplusID: record.ID,
		ClaimedBy: actorID,
	}); err != nil {
		logger.Warnw("surplus_claimed_enqueue_failed", "surplus_id", record.ID, "error", err)
	}

	return record, nil
}

// classifyClaimFailure 回读记录，区分认领失败的冲突原因。
func (s *SurplusService) classifyClaimFailure(id uint, now time.Time) error {
	record, err := s.surplusRepo.GetByID(id)
	if err != nil {
		return wrapStoreError(err)
	}
	if record == nil {
		return ErrSurplusNotFound
	}
	switch record.Status {
	case constants.SurplusStatusClaimed:
		return ErrSurplusAlreadyClaimed
	case constants.SurplusStatusCollected:
		return ErrSurplusAlreadyCollected
	case constants.SurplusStatusExpired:
		return ErrSurplusExpired
	case constants.SurplusStatusAvailable:
		if !record.ExpiryAt.After(now) {
			return ErrSurplusExpired
		}
	}
	return ErrSurplusAlreadyClaimed
}

// ConfirmCollection 确认领取完成
// 仅允许认领方本人确认，备注以 Collection 段追加而非覆盖。
func (s *SurplusService) ConfirmCollection(id uint, actorID uint, notes string) (*models.SurplusRecord, error) {
	if actorID == 0 {
		return nil, ErrSurplusForbidden
	}
	record, err := s.surplusRepo.GetByID(id)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if record == nil {
		return nil, ErrSurplusNotFound
	}
	if record.Status == constants.SurplusStatusClaimed && record.ClaimedBy != nil && *record.ClaimedBy != actorID {
		return nil, ErrSurplusForbidden
	}
	if !surplusTransitionAllowed(record.Status, constants.SurplusStatusCollected) {
		return nil, s.classifyCollectFailure(record)
	}

	now := time.Now()
	mergedNotes := appendCollectionNotes(record.Notes, notes)
	affected, err := s.surplusRepo.MarkCollected(id, actorID, now, mergedNotes)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if affected == 0 {
		// 条件更新竞争失败，按最新状态重新判定
		latest, err := s.surplusRepo.GetByID(id)
		if err != nil {
			return nil, wrapStoreError(err)
		}
		if latest == nil {
			return nil, ErrSurplusNotFound
		}
		if latest.Status == constants.SurplusStatusClaimed && latest.ClaimedBy != nil && *latest.ClaimedBy != actorID {
			return nil, ErrSurplusForbidden
		}
		return nil, s.classifyCollectFailure(latest)
	}

	record, err = s.surplusRepo.GetByID(id)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if record == nil {
		return nil, ErrSurplusNotFound
	}

	if err := s.queueClient.EnqueueSurplusCollected(queue.SurplusCollectedPayload{
		SurplusID:   record.ID,
		CollectedBy: actorID,
	}); err != nil {
		logger.Warnw("surplus_collected_enqueue_failed", "surplus_id", record.ID, "error", err)
	}
	if s.collectionCredits > 0 {
		if err := s.queueClient.EnqueueRewardCredit(queue.RewardCreditPayload{
			UserID: actorID,
			Type:   constants.RewardTxnTypeCollection,
			Amount: s.collectionCredits,
			RefID:  record.ID,
			Remark: "surplus collection",
		}); err != nil {
			logger.Warnw("reward_credit_enqueue_failed", "surplus_id", record.ID, "user_id", actorID, "error", err)
		}
	}

	return record, nil
}

func (s *SurplusService) classifyCollectFailure(record *models.SurplusRecord) error {
	switch record.Status {
	case constants.SurplusStatusAvailable:
		return ErrSurplusNotClaimed
	case constants.SurplusStatusCollected:
		return ErrSurplusAlreadyCollected
	case constants.SurplusStatusExpired:
		return ErrSurplusExpired
	}
	return ErrSurplusNotClaimed
}

// appendCollectionNotes 追加领取备注，保留登记时的原始备注。
func appendCollectionNotes(existing, notes string) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return ""
	}
	segment := "Collection: " + notes
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return segment
	}
	return existing + "\n" + segment
}

// ListClaims 获取认领方自己的记录列表，按认领时间倒序。
func (s *SurplusService) ListClaims(actorID uint, filter repository.ClaimListFilter) ([]models.SurplusRecord, int64, error) {
	if actorID == 0 {
		return nil, 0, ErrSurplusForbidden
	}
	filter.ClaimedBy = actorID
	records, total, err := s.surplusRepo.ListByClaimant(filter)
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	return records, total, nil
}

// ListAdmin 管理端获取全部余量记录
func (s *SurplusService) ListAdmin(filter repository.SurplusListFilter) ([]models.SurplusRecord, int64, error) {
	records, total, err := s.surplusRepo.ListAdmin(filter)
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	return records, total, nil
}

// ExpireSweep 过期清扫
// 仅处理 available 且已过可领取截止时间的记录，claimed 记录不参与。
func (s *SurplusService) ExpireSweep() (int64, error) {
	affected, err := s.surplusRepo.ExpireAvailable(time.Now())
	if err != nil {
		return 0, wrapStoreError(err)
	}
	if affected > 0 {
		logger.Infow("surplus_expire_sweep_done", "expired", affected)
	}
	return affected, nil
}
