package testutil

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ekosetor/rvmledger/internal/apperrors"
	"github.com/ekosetor/rvmledger/internal/models"
	"github.com/ekosetor/rvmledger/internal/repository"
)

// MemStorage is an in-memory repository.Storage for service-level tests.
// It mirrors the dedup and terminal-state semantics of the postgres
// implementation and lets tests inject per-row failures.
type MemStorage struct {
	mu sync.Mutex

	Users       []models.User
	Reviews     map[uuid.UUID]*models.Review
	Withdrawals []models.Withdrawal

	// Injectable failures
	FailCreateFor  map[string]error    // keyed by vendor_record_id
	FailResolveFor map[uuid.UUID]error // keyed by review id
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		Reviews:        make(map[uuid.UUID]*models.Review),
		FailCreateFor:  make(map[string]error),
		FailResolveFor: make(map[uuid.UUID]error),
	}
}

func (m *MemStorage) User() repository.UserRepo             { return m }
func (m *MemStorage) Review() repository.ReviewRepo         { return m }
func (m *MemStorage) Withdrawal() repository.WithdrawalRepo { return m }

func (m *MemStorage) InTx(ctx context.Context, fn func(repository.Storage) error) error {
	return fn(m)
}

// AddUser seeds a user and returns it.
func (m *MemStorage) AddUser(phone string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	user := models.User{ID: uuid.New(), CreatedAt: time.Now(), Phone: phone}
	m.Users = append(m.Users, user)
	return user
}

// AddReview seeds a review, assigning an id when absent.
func (m *MemStorage) AddReview(review models.Review) models.Review {
	m.mu.Lock()
	defer m.mu.Unlock()

	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	if review.Status == "" {
		review.Status = models.ReviewStatusPending
	}
	stored := review
	m.Reviews[review.ID] = &stored
	return review
}

// AddWithdrawal seeds a withdrawal.
func (m *MemStorage) AddWithdrawal(userID uuid.UUID, amount decimal.Decimal, status string) models.Withdrawal {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := models.Withdrawal{ID: uuid.New(), CreatedAt: time.Now(), UserID: userID, Amount: amount, Status: status}
	m.Withdrawals = append(m.Withdrawals, w)
	return w
}

// UserRepo

func (m *MemStorage) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.Users {
		if u.Phone == params.Phone {
			return models.User{}, apperrors.ErrUserAlreadyExists
		}
	}

	user := models.User{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		Phone:     params.Phone,
		Nickname:  params.Nickname,
		AvatarURL: params.AvatarURL,
	}
	m.Users = append(m.Users, user)
	return user, nil
}

func (m *MemStorage) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.Users {
		if u.ID == userID {
			return u, nil
		}
	}
	return models.User{}, apperrors.ErrUserNotFound
}

func (m *MemStorage) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]models.User(nil), m.Users...), nil
}

func (m *MemStorage) AggregateTotals(ctx context.Context) (decimal.Decimal, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	points := decimal.Zero
	var weight float64
	for _, u := range m.Users {
		points = points.Add(u.LifetimePoints)
		weight += u.TotalWeight
	}
	return points, weight, nil
}

// ReviewRepo

func (m *MemStorage) CreateReview(ctx context.Context, review models.Review) (models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailCreateFor[review.VendorRecordID]; ok {
		return models.Review{}, err
	}

	for _, r := range m.Reviews {
		if r.VendorRecordID == review.VendorRecordID {
			return models.Review{}, apperrors.ErrReviewAlreadyExists
		}
	}

	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	if review.Status == "" {
		review.Status = models.ReviewStatusPending
	}
	if review.Source == "" {
		review.Source = models.ReviewSourceFetch
	}

	stored := review
	m.Reviews[review.ID] = &stored
	return review, nil
}

func (m *MemStorage) ExistsByVendorRecordID(ctx context.Context, vendorRecordID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.Reviews {
		if r.VendorRecordID == vendorRecordID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStorage) GetReview(ctx context.Context, id uuid.UUID) (models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.Reviews[id]; ok {
		return *r, nil
	}
	return models.Review{}, apperrors.ErrReviewNotFound
}

func (m *MemStorage) ListReviews(ctx context.Context, opts repository.ListReviewsOpts) ([]models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.Review
	for _, r := range m.Reviews {
		if opts.UserID != nil && r.UserID != *opts.UserID {
			continue
		}
		if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, r.Status) {
			continue
		}
		result = append(result, *r)
	}

	sort.Slice(result, func(i, j int) bool {
		if opts.OldestFirst {
			return result[i].SubmittedAt.Before(result[j].SubmittedAt)
		}
		return result[i].SubmittedAt.After(result[j].SubmittedAt)
	})

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (m *MemStorage) ListReviewsWithUser(ctx context.Context, opts repository.ListReviewsOpts) ([]models.ReviewWithUser, error) {
	reviews, err := m.ListReviews(ctx, opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]models.ReviewWithUser, 0, len(reviews))
	for _, r := range reviews {
		rv := models.ReviewWithUser{Review: r}
		for _, u := range m.Users {
			if u.ID == r.UserID {
				rv.UserNickname = u.Nickname
				rv.UserAvatarURL = u.AvatarURL
				rv.UserPhone = u.Phone
				break
			}
		}
		result = append(result, rv)
	}
	return result, nil
}

func (m *MemStorage) SumMachinePoints(ctx context.Context, userID uuid.UUID, status string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sum := decimal.Zero
	for _, r := range m.Reviews {
		if r.UserID == userID && r.Status == status {
			sum = sum.Add(r.MachineGivenPoints)
		}
	}
	return sum, nil
}

func (m *MemStorage) Resolve(ctx context.Context, params repository.ResolveReviewParams) (models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailResolveFor[params.ID]; ok {
		return models.Review{}, err
	}

	r, ok := m.Reviews[params.ID]
	if !ok {
		return models.Review{}, apperrors.ErrReviewNotFound
	}
	if r.Status != models.ReviewStatusPending {
		return models.Review{}, apperrors.ErrReviewAlreadyResolved
	}

	r.Status = params.Status
	weight := params.ConfirmedWeight
	points := params.CalculatedPoints
	reviewedAt := params.ReviewedAt
	r.ConfirmedWeight = &weight
	r.CalculatedPoints = &points
	r.ReviewerNote = params.ReviewerNote
	r.ReviewedAt = &reviewedAt

	return *r, nil
}

func (m *MemStorage) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, r := range m.Reviews {
		if r.Status != models.ReviewStatusPending && r.SubmittedAt.Before(cutoff) {
			delete(m.Reviews, id)
			deleted++
		}
	}
	return deleted, nil
}

// WithdrawalRepo

func (m *MemStorage) CreateWithdrawal(ctx context.Context, params repository.CreateWithdrawalParams) (models.Withdrawal, error) {
	status := params.Status
	if status == "" {
		status = models.WithdrawalStatusPending
	}
	return m.AddWithdrawal(params.UserID, params.Amount, status), nil
}

func (m *MemStorage) SumWithdrawn(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sum := decimal.Zero
	for _, w := range m.Withdrawals {
		if w.UserID == userID && slices.Contains(models.WithdrawnStatuses, w.Status) {
			sum = sum.Add(w.Amount)
		}
	}
	return sum, nil
}

func (m *MemStorage) SumNonRejected(ctx context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sum := decimal.Zero
	for _, w := range m.Withdrawals {
		if w.Status != models.WithdrawalStatusRejected {
			sum = sum.Add(w.Amount)
		}
	}
	return sum, nil
}

func (m *MemStorage) CountByStatus(ctx context.Context, status string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, w := range m.Withdrawals {
		if w.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *MemStorage) ListRecentWithUser(ctx context.Context, limit int) ([]models.WithdrawalWithUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	withdrawals := append([]models.Withdrawal(nil), m.Withdrawals...)
	sort.Slice(withdrawals, func(i, j int) bool {
		return withdrawals[i].CreatedAt.After(withdrawals[j].CreatedAt)
	})
	if limit > 0 && len(withdrawals) > limit {
		withdrawals = withdrawals[:limit]
	}

	result := make([]models.WithdrawalWithUser, 0, len(withdrawals))
	for _, w := range withdrawals {
		ww := models.WithdrawalWithUser{Withdrawal: w}
		for _, u := range m.Users {
			if u.ID == w.UserID {
				ww.UserNickname = u.Nickname
				ww.UserAvatarURL = u.AvatarURL
				ww.UserPhone = u.Phone
				break
			}
		}
		result = append(result, ww)
	}
	return result, nil
}
