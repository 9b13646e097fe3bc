package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	domainerrors "cascade/contexts/donation-core/distribution-ledger/domain/errors"
	"cascade/contexts/donation-core/distribution-ledger/ports"
	"cascade/internal/shared/kv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	// One ledger unit is roughly five seconds on the reference host; the
	// retention extension therefore works out to about a year.
	ledgerUnit = 5 * time.Second
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row ledgerEntryModel
	err := r.db.WithContext(ctx).
		Where("entry_key = ?", key).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, r.logError("ledger_repo_get_failed", err, "entry_key", key)
	}
	return append([]byte(nil), row.Value...), true, nil
}

func (r *Repository) Has(ctx context.Context, key string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&ledgerEntryModel{}).
		Where("entry_key = ?", key).
		Count(&count).
		Error; err != nil {
		return false, r.logError("ledger_repo_has_failed", err, "entry_key", key)
	}
	return count > 0, nil
}

func (r *Repository) Apply(ctx context.Context, writes []kv.Write) error {
	now := time.Now().UTC()
	retainUntil := now.Add(time.Duration(kv.RetentionExtension) * ledgerUnit)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, write := range writes {
			if write.Key == "" {
				return domainerrors.ErrInvalidInput
			}
			if write.Value == nil {
				if err := tx.Where("entry_key = ?", write.Key).
					Delete(&ledgerEntryModel{}).
					Error; err != nil {
					return err
				}
				continue
			}
			row := ledgerEntryModel{
				Key:         write.Key,
				Value:       append([]byte(nil), write.Value...),
				RetainUntil: retainUntil,
				UpdatedAt:   now,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "entry_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"entry_value", "retain_until", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return r.logError("ledger_repo_apply_failed", err, "write_count", len(writes))
	}
	return nil
}

// Transfer moves funds between two ledger-visible accounts inside one
// database transaction; the debit and credit commit together or not at all.
func (r *Repository) Transfer(ctx context.Context, asset string, from string, to string, amount *big.Int) error {
	asset = strings.TrimSpace(asset)
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if asset == "" || from == "" || to == "" || amount == nil || amount.Sign() <= 0 {
		return domainerrors.ErrTransferFailed
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source, err := lockAccount(tx, asset, from)
		if err != nil {
			return err
		}
		balance, ok := new(big.Int).SetString(source.Balance, 10)
		if !ok || balance.Cmp(amount) < 0 {
			return domainerrors.ErrTransferFailed
		}
		balance.Sub(balance, amount)
		if err := tx.Model(&assetAccountModel{}).
			Where("asset = ? AND account = ?", asset, from).
			Update("balance", balance.String()).
			Error; err != nil {
			return err
		}

		target, err := lockAccount(tx, asset, to)
		if err != nil {
			return err
		}
		credited, ok := new(big.Int).SetString(target.Balance, 10)
		if !ok {
			return domainerrors.ErrTransferFailed
		}
		credited.Add(credited, amount)
		return tx.Model(&assetAccountModel{}).
			Where("asset = ? AND account = ?", asset, to).
			Update("balance", credited.String()).
			Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrTransferFailed) {
			r.logWarn("ledger_repo_transfer_rejected",
				"asset", asset,
				"from", from,
				"to", to,
				"amount", amount.String(),
			)
			return err
		}
		return r.logError("ledger_repo_transfer_failed", err,
			"asset", asset,
			"from", from,
			"to", to,
		)
	}
	return nil
}

// Deposit credits an account, creating its row on first use. Used to fund
// donor accounts from an external on-ramp.
func (r *Repository) Deposit(ctx context.Context, asset string, account string, amount *big.Int) error {
	asset = strings.TrimSpace(asset)
	account = strings.TrimSpace(account)
	if asset == "" || account == "" || amount == nil || amount.Sign() <= 0 {
		return domainerrors.ErrTransferFailed
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockAccount(tx, asset, account)
		if err != nil {
			return err
		}
		balance, ok := new(big.Int).SetString(row.Balance, 10)
		if !ok {
			return domainerrors.ErrTransferFailed
		}
		balance.Add(balance, amount)
		return tx.Model(&assetAccountModel{}).
			Where("asset = ? AND account = ?", asset, account).
			Update("balance", balance.String()).
			Error
	})
	if err != nil {
		return r.logError("ledger_repo_deposit_failed", err,
			"asset", asset,
			"account", account,
		)
	}
	return nil
}

func lockAccount(tx *gorm.DB, asset string, account string) (assetAccountModel, error) {
	row := assetAccountModel{Asset: asset, Account: account, Balance: "0"}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset"}, {Name: "account"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil && !isUniqueViolation(err) {
		return assetAccountModel{}, err
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("asset = ? AND account = ?", asset, account).
		First(&row).
		Error; err != nil {
		return assetAccountModel{}, err
	}
	return row, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	if strings.TrimSpace(envelope.EventID) == "" {
		envelope.EventID = uuid.NewString()
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("ledger_repo_append_outbox_marshal_failed", err,
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := ledgerOutboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAtUTC.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if !isUniqueViolation(err) {
			return r.logError("ledger_repo_append_outbox_insert_failed", err,
				"outbox_id", row.OutboxID,
				"event_type", row.EventType,
			)
		}
		var existing ledgerOutboxModel
		if err := r.db.WithContext(ctx).
			Select("payload").
			Where("outbox_id = ?", row.OutboxID).
			First(&existing).
			Error; err != nil {
			return r.logError("ledger_repo_append_outbox_load_existing_failed", err,
				"outbox_id", row.OutboxID,
			)
		}
		if !bytes.Equal(existing.Payload, row.Payload) {
			r.logWarn("ledger_repo_append_outbox_payload_conflict",
				"outbox_id", row.OutboxID,
				"event_type", row.EventType,
			)
			return domainerrors.ErrInvalidInput
		}
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []ledgerOutboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_list_pending_outbox_failed", err,
			"limit", limit,
		)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&ledgerOutboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("ledger_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("ledger_repo_mark_outbox_published_not_found",
			"outbox_id", strings.TrimSpace(outboxID),
		)
		return domainerrors.ErrInvalidInput
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "donation-core/distribution-ledger",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ledger repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+5)
	fields = append(fields,
		"event", event,
		"module", "donation-core/distribution-ledger",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("ledger repository warning", fields...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type ledgerEntryModel struct {
	Key         string    `gorm:"column:entry_key;primaryKey"`
	Value       []byte    `gorm:"column:entry_value"`
	RetainUntil time.Time `gorm:"column:retain_until"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (ledgerEntryModel) TableName() string {
	return "ledger_entries"
}

type assetAccountModel struct {
	Asset   string `gorm:"column:asset;primaryKey"`
	Account string `gorm:"column:account;primaryKey"`
	Balance string `gorm:"column:balance"`
}

func (assetAccountModel) TableName() string {
	return "asset_accounts"
}

type ledgerOutboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (ledgerOutboxModel) TableName() string {
	return "ledger_outbox"
}

var _ ports.Store = (*Repository)(nil)
var _ ports.AssetTransfer = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
