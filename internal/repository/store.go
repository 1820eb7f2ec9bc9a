package repository

import (
	"context"
	"errors"
	"strings"

	"pgstay/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the session every service works through. Inside WithinTx the
// callback receives a Store bound to the transaction; all reads and writes
// made through it commit or roll back together.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) WithinTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Users() *UserRepository { return &UserRepository{db: s.db} }
func (s *Store) Properties() *PropertyRepository { return &PropertyRepository{db: s.db} }
func (s *Store) Bookings() *BookingRepository { return &BookingRepository{db: s.db} }
func (s *Store) Tenancies() *TenancyRepository { return &TenancyRepository{db: s.db} }
func (s *Store) Agreements() *AgreementRepository { return &AgreementRepository{db: s.db} }
func (s *Store) Orders() *PaymentOrderRepository { return &PaymentOrderRepository{db: s.db} }
func (s *Store) Deliveries() *DeliveryRepository { return &DeliveryRepository{db: s.db} }
func (s *Store) Payouts() *PayoutAccountRepository { return &PayoutAccountRepository{db: s.db} }
func (s *Store) Notifications() *NotificationRepository {
	return &NotificationRepository{db: s.db}
}

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

// notFound maps gorm's missing-row error onto the domain kind.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

// IsUniqueViolation reports whether err came from a unique constraint on
// either Postgres or SQLite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint failed: unique")
}
