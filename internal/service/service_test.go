package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/multiplayers/arena/internal/domain"
	"github.com/multiplayers/arena/internal/provider"
	"github.com/multiplayers/arena/internal/repository"
)

// Shared in-memory fakes for the service tests. Repositories ignore the db
// handle; the pool fake only has to hand out transactions that commit.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakePool struct{}

func (fakePool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (fakePool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (fakePool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

func (fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	return &fakeTx{}, nil
}

// --- admins ---

type fakeAdminRepo struct {
	admins map[int64]*domain.Admin
}

func newFakeAdminRepo(admins ...*domain.Admin) *fakeAdminRepo {
	r := &fakeAdminRepo{admins: make(map[int64]*domain.Admin)}
	for _, a := range admins {
		r.admins[a.ID] = a
	}
	return r
}

func (r *fakeAdminRepo) FindActiveByEmail(ctx context.Context, db repository.DBTX, email string) (*domain.Admin, error) {
	for _, a := range r.admins {
		if a.Email == email && a.Active && !a.Deleted {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAdminRepo) FindByID(ctx context.Context, db repository.DBTX, id int64) (*domain.Admin, error) {
	return r.admins[id], nil
}

func (r *fakeAdminRepo) SetOTP(ctx context.Context, db repository.DBTX, id int64, code string, expiry time.Time) error {
	a := r.admins[id]
	a.OtpCode = &code
	a.OtpExpiry = &expiry
	return nil
}

func (r *fakeAdminRepo) ConsumeOTP(ctx context.Context, db repository.DBTX, id int64, code string, now time.Time) (bool, error) {
	a := r.admins[id]
	if a == nil || a.OtpCode == nil || *a.OtpCode != code || !a.OtpExpiry.After(now) {
		return false, nil
	}
	a.OtpCode = nil
	a.OtpExpiry = nil
	at := now
	a.LastLoginAt = &at
	return true, nil
}

// --- users ---

type fakeUserRepo struct {
	users  map[int64]*domain.User
	nextID int64
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[int64]*domain.User), nextID: 1}
	for _, u := range users {
		r.users[u.ID] = u
		if u.ID >= r.nextID {
			r.nextID = u.ID + 1
		}
	}
	return r
}

func (r *fakeUserRepo) FindByID(ctx context.Context, db repository.DBTX, id int64) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByGoogleID(ctx context.Context, db repository.DBTX, googleID string) (*domain.User, error) {
	for _, u := range r.users {
		if u.GoogleID != "" && u.GoogleID == googleID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) List(ctx context.Context, db repository.DBTX, includeDeleted bool) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		if includeDeleted || !u.Deleted {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, db repository.DBTX, u *domain.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return domain.ErrConflict("email already exists")
		}
		if existing.Username == u.Username {
			return domain.ErrConflict("username already exists")
		}
	}
	u.ID = r.nextID
	r.nextID++
	u.CreatedAt = time.Now()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, db repository.DBTX, u *domain.User) error {
	existing, ok := r.users[u.ID]
	if !ok || existing.Deleted {
		return domain.ErrNotFound("user", "update")
	}
	cp := *u
	cp.CreatedAt = existing.CreatedAt
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) EmailTaken(ctx context.Context, db repository.DBTX, email string, excludeID int64) (bool, error) {
	for _, u := range r.users {
		if u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) UsernameTaken(ctx context.Context, db repository.DBTX, username string, excludeID int64) (bool, error) {
	for _, u := range r.users {
		if u.Username == username && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) SoftDelete(ctx context.Context, db repository.DBTX, id int64, at time.Time) error {
	u, ok := r.users[id]
	if !ok || u.Deleted {
		return domain.ErrNotFound("user", "delete")
	}
	u.Deleted = true
	u.DeletedAt = &at
	return nil
}

func (r *fakeUserRepo) ApproveKyc(ctx context.Context, db repository.DBTX, id int64, at time.Time) error {
	u, ok := r.users[id]
	if !ok || u.Deleted {
		return domain.ErrNotFound("user", "kyc")
	}
	u.KycVerified = true
	u.KycVerifiedAt = &at
	return nil
}

func (r *fakeUserRepo) UpdatePasswordHash(ctx context.Context, db repository.DBTX, id int64, hash string) error {
	u, ok := r.users[id]
	if !ok || u.Deleted {
		return domain.ErrNotFound("user", "password")
	}
	u.PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) TouchLogin(ctx context.Context, db repository.DBTX, id int64, at time.Time, ip, device string) error {
	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound("user", "touch")
	}
	u.LastLoginAt = &at
	if ip != "" {
		u.LastLoginIP = ip
	}
	if device != "" {
		u.LastLoginDevice = device
	}
	return nil
}

// --- outbox ---

type fakeOutboxRepo struct {
	drafts []domain.OutboxDraft
}

func (r *fakeOutboxRepo) Insert(ctx context.Context, db repository.DBTX, draft domain.OutboxDraft) error {
	r.drafts = append(r.drafts, draft)
	return nil
}

func (r *fakeOutboxRepo) FetchUnpublished(ctx context.Context, db repository.DBTX, limit int) ([]domain.OutboxRow, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkPublished(ctx context.Context, db repository.DBTX, ids []int64) error {
	return nil
}

func (r *fakeOutboxRepo) eventTypes() []domain.EventType {
	var out []domain.EventType
	for _, d := range r.drafts {
		out = append(out, d.EventType)
	}
	return out
}

// --- external dependencies ---

type fakeMailer struct {
	to, subject, body string
	sends             int
	err               error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	m.sends++
	if m.err != nil {
		return m.err
	}
	m.to, m.subject, m.body = to, subject, body
	return nil
}

type fakeLoginGuard struct {
	locked   bool
	attempts []bool
}

func (g *fakeLoginGuard) CheckLocked(ctx context.Context, email, realm string) error {
	if g.locked {
		return domain.ErrAccountLocked("too many failed login attempts, try again later")
	}
	return nil
}

func (g *fakeLoginGuard) RecordAttempt(ctx context.Context, email, realm, ip string, success bool) {
	g.attempts = append(g.attempts, success)
}

type fakeResolver struct {
	identity *provider.Identity
	err      error
}

func (r *fakeResolver) Resolve(ctx context.Context, token string) (*provider.Identity, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.identity, nil
}

// zeroReader makes OTP generation deterministic: all-zero entropy always
// yields the minimum code.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
