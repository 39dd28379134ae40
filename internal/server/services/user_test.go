package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/vkozyrev/backupd/internal/common"
	"github.com/vkozyrev/backupd/internal/dbx"
	"github.com/vkozyrev/backupd/internal/server/config"
	"github.com/vkozyrev/backupd/internal/server/models"
	backupsrepo "github.com/vkozyrev/backupd/internal/server/repositories/backups"
	licensesrepo "github.com/vkozyrev/backupd/internal/server/repositories/licenses"
	refreshtokensrepo "github.com/vkozyrev/backupd/internal/server/repositories/refreshtokens"
	usersrepo "github.com/vkozyrev/backupd/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newUserService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *UserService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	return NewUserService(db, rm, cfg)
}

type fakeUsersRepo struct {
	createErr error
	created   []*models.User

	getOut *models.User
	getErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	u.ID = "u1"
	u.CreatedAt = time.Now()
	f.created = append(f.created, u)
	return u, nil
}

func (f *fakeUsersRepo) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	delErr error

	createErr error
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	return f.createErr
}
func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}
func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	return f.delErr
}

// fakeRepoManager vends the fakes regardless of the DBTX it is given.
type fakeRepoManager struct {
	u *fakeUsersRepo
	l licensesrepo.Repository
	b backupsrepo.Repository
	r *fakeRefreshRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) Licenses(db dbx.DBTX) licensesrepo.Repository           { return m.l }
func (m *fakeRepoManager) Backups(db dbx.DBTX) backupsrepo.Repository             { return m.b }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }

// --- tests ---

func TestRegister_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{}}
	s := newUserService(t, db, rm)

	sess, err := s.Register(context.Background(), "alice", "pa55word")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if sess.Tokens.AccessToken == "" || sess.Tokens.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", sess.Tokens)
	}
	if len(sess.EncryptionKey) != 32 {
		t.Fatalf("expected 32-byte encryption key, got %d bytes", len(sess.EncryptionKey))
	}

	if len(rm.u.created) != 1 {
		t.Fatalf("expected 1 created user, got %d", len(rm.u.created))
	}
	stored := rm.u.created[0]
	if err := bcrypt.CompareHashAndPassword(stored.PasswordHash, []byte("pa55word")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	dup := &pgconn.PgError{Code: "23505"}
	rm := &fakeRepoManager{u: &fakeUsersRepo{createErr: dup}, r: &fakeRefreshRepo{}}
	s := newUserService(t, db, rm)

	_, err := s.Register(context.Background(), "alice", "x")
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("expected common.ErrConflict, got %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("pa55word"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}
	key := []byte("0123456789abcdef0123456789abcdef")

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{getOut: &models.User{ID: "u1", UserName: "alice", PasswordHash: hash, EncryptionKey: key}},
		r: &fakeRefreshRepo{},
	}
	s := newUserService(t, db, rm)

	sess, err := s.Login(context.Background(), "alice", "pa55word")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if sess.Tokens.AccessToken == "" || sess.Tokens.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", sess.Tokens)
	}
	if string(sess.EncryptionKey) != string(key) {
		t.Fatalf("login must return the registration-time encryption key")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	hash, _ := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{getOut: &models.User{ID: "u1", PasswordHash: hash}},
		r: &fakeRefreshRepo{},
	}
	s := newUserService(t, db, rm)

	_, err := s.Login(context.Background(), "alice", "wrong")
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected common.ErrUnauthorized, got %v", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{getErr: common.ErrNotFound},
		r: &fakeRefreshRepo{},
	}
	s := newUserService(t, db, rm)

	_, err := s.Login(context.Background(), "ghost", "x")
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected common.ErrUnauthorized, got %v", err)
	}
}

func TestRefreshToken_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{
		r: &fakeRefreshRepo{
			findOut: &models.RefreshToken{UserID: "u1", Expires: time.Now().Add(10 * time.Minute)},
		},
	}
	s := newUserService(t, db, rm)

	pair, err := s.RefreshToken(context.Background(), "refresh-xyz")
	if err != nil {
		t.Fatalf("RefreshToken error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", pair)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRefreshToken_Expired(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		r: &fakeRefreshRepo{
			findOut: &models.RefreshToken{UserID: "u1", Expires: time.Now().Add(-1 * time.Minute)},
		},
	}
	s := newUserService(t, db, rm)

	_, err := s.RefreshToken(context.Background(), "r")
	if !errors.Is(err, common.ErrRefreshTokenExpired) {
		t.Fatalf("expected common.ErrRefreshTokenExpired, got %v", err)
	}
}

func TestRefreshToken_Unknown(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		r: &fakeRefreshRepo{findErr: common.ErrNotFound},
	}
	s := newUserService(t, db, rm)

	_, err := s.RefreshToken(context.Background(), "unknown")
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected common.ErrUnauthorized, got %v", err)
	}
}
