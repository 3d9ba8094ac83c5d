package repository

import (
	"context"
	"errors"

	"itemledger/internal/model"

	"gorm.io/gorm"
)

// OperationLogRepository persists the append-only operation log.
type OperationLogRepository interface {
	Log(ctx context.Context, entry *model.OperationLog) error
	FindByID(ctx context.Context, id uint) (*model.OperationLog, error)
	LatestReversible(ctx context.Context, reverted bool) (*model.OperationLog, error)
	SetReverted(ctx context.Context, id uint, reverted bool) error
	List(ctx context.Context, filter model.OperationLogFilter) ([]model.OperationLog, int64, error)
}

type operationLogRepository struct {
	db *gorm.DB
}

func NewOperationLogRepository(db *gorm.DB) OperationLogRepository {
	return &operationLogRepository{db: db}
}

func (r *operationLogRepository) Log(ctx context.Context, entry *model.OperationLog) error {
	entry.ID = 0
	if entry.OperationCategory == "" {
		entry.OperationCategory = model.CategoryOf(entry.OperationType)
	}
	// gorm skips zero-valued fields that carry a default tag, so a false
	// capability has to be written explicitly.
	canRevert := entry.CanRevert
	if err := GetDB(ctx, r.db).Create(entry).Error; err != nil {
		return err
	}
	if !canRevert {
		return GetDB(ctx, r.db).Model(&model.OperationLog{}).
			Where("id = ?", entry.ID).
			UpdateColumn("can_revert", false).Error
	}
	return nil
}

func (r *operationLogRepository) FindByID(ctx context.Context, id uint) (*model.OperationLog, error) {
	var entry model.OperationLog
	if err := GetDB(ctx, r.db).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// LatestReversible returns the next undo or redo candidate. Applied entries
// are taken newest written first; reverted entries are taken in reverse
// undo order, so redo replays what undo took back.
func (r *operationLogRepository) LatestReversible(ctx context.Context, reverted bool) (*model.OperationLog, error) {
	var entry model.OperationLog
	order := "id desc"
	if reverted {
		order = "revert_seq desc, id asc"
	}
	err := GetDB(ctx, r.db).
		Where("can_revert = ? AND reverted = ?", true, reverted).
		Order(order).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// SetReverted flips the flag. Reverting stamps the entry with the next undo
// sequence number; callers run it inside the ledger transaction.
func (r *operationLogRepository) SetReverted(ctx context.Context, id uint, reverted bool) error {
	db := GetDB(ctx, r.db)
	updates := map[string]interface{}{"reverted": reverted, "revert_seq": int64(0)}
	if reverted {
		var last int64
		if err := db.Model(&model.OperationLog{}).
			Select("COALESCE(MAX(revert_seq), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		updates["revert_seq"] = last + 1
	}

	res := db.Model(&model.OperationLog{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func applyLogFilter(db *gorm.DB, f model.OperationLogFilter) *gorm.DB {
	if f.Tab != "" {
		db = db.Where("tab_name = ?", f.Tab)
	}
	if f.Type != "" {
		db = db.Where("operation_type = ?", f.Type)
	}
	if f.Category != "" {
		db = db.Where("operation_category = ?", f.Category)
	}
	if f.Keyword != "" {
		db = db.Where(whereContains("operation_data"), containsPattern(f.Keyword))
	}
	if f.Reverted != nil {
		db = db.Where("reverted = ?", *f.Reverted)
	}
	return db
}

func (r *operationLogRepository) List(ctx context.Context, filter model.OperationLogFilter) ([]model.OperationLog, int64, error) {
	var logs []model.OperationLog
	var total int64

	db := GetDB(ctx, r.db)
	if err := applyLogFilter(db.Model(&model.OperationLog{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := applyLogFilter(db.Model(&model.OperationLog{}), filter).Order("id desc")
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		q = q.Offset((page - 1) * filter.Limit).Limit(filter.Limit)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
