package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/utils"
)

const testSecret = "unit-test-secret"

func newAuth(t *testing.T) (*AuthService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewAuthService(repository.NewUserRepo(db), testSecret, 30, 4, fixedClock{now}), mock
}

func userRow(id uint64, hash string, admin, active bool) *sqlmock.Rows {
	return sqlmock.NewRows(userCols).AddRow(int64(id), "neo", "neo@example.com", "Thomas A.", hash, admin, active, now)
}

var (
	qUserInsert = regexp.QuoteMeta("INSERT INTO users")
	qUserByName = regexp.QuoteMeta("FROM users WHERE username=?")
	qUserByID   = regexp.QuoteMeta("FROM users WHERE id=?")
)

func TestRegister(t *testing.T) {
	auth, mock := newAuth(t)
	mock.ExpectExec(qUserInsert).
		WithArgs("neo", "neo@example.com", "Thomas A.", sqlmock.AnyArg(), false, true, now).
		WillReturnResult(sqlmock.NewResult(5, 1))

	u, err := auth.Register(ctx, RegisterInput{Username: " neo ", Email: "NEO@example.com", FullName: "Thomas A.", Password: "matrix"})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), u.ID)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "matrix"))

	mock.ExpectExec(qUserInsert).WillReturnError(&mysql.MySQLError{Number: 1062})
	_, err = auth.Register(ctx, RegisterInput{Username: "neo", Email: "neo@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLoginAndResolve(t *testing.T) {
	hash, err := utils.HashPassword("matrix", 4)
	require.NoError(t, err)

	auth, mock := newAuth(t)
	mock.ExpectQuery(qUserByName).WithArgs("neo").WillReturnRows(userRow(5, hash, true, true))
	u, tok, err := auth.Login(ctx, "neo", "matrix")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), u.ID)
	require.NotEmpty(t, tok.Token)

	mock.ExpectQuery(qUserByID).WithArgs(uint64(5)).WillReturnRows(userRow(5, hash, true, true))
	id, err := auth.Resolve(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: 5, IsAdmin: true, IsActive: true}, id)

	// The admin flag comes from the user row, not the token.
	mock.ExpectQuery(qUserByID).WillReturnRows(userRow(5, hash, false, true))
	id, err = auth.Resolve(ctx, tok.Token)
	require.NoError(t, err)
	assert.False(t, id.IsAdmin)

	_, err = auth.Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestResolveRejectsBadSubject(t *testing.T) {
	auth, _ := newAuth(t)
	for _, sub := range []string{"abc", "0", ""} {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = auth.Resolve(ctx, raw)
		assert.ErrorIs(t, err, ErrUnauthorized, "sub=%q", sub)
	}
}

func TestLoginFailures(t *testing.T) {
	hash, err := utils.HashPassword("matrix", 4)
	require.NoError(t, err)
	auth, mock := newAuth(t)

	mock.ExpectQuery(qUserByName).WillReturnRows(sqlmock.NewRows(userCols))
	_, _, err = auth.Login(ctx, "nobody", "matrix")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	mock.ExpectQuery(qUserByName).WillReturnRows(userRow(5, hash, false, true))
	_, _, err = auth.Login(ctx, "neo", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	mock.ExpectQuery(qUserByName).WillReturnRows(userRow(5, hash, false, false))
	_, _, err = auth.Login(ctx, "neo", "matrix")
	assert.ErrorIs(t, err, ErrInactiveUser)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestEnsureAdmin(t *testing.T) {
	auth, mock := newAuth(t)

	mock.ExpectQuery(qUserByName).WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectExec(qUserInsert).
		WithArgs("root", "root@example.com", "", sqlmock.AnyArg(), true, true, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	u, created, err := auth.EnsureAdmin(ctx, RegisterInput{Username: "root", Email: "root@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, u.IsAdmin)

	mock.ExpectQuery(qUserByName).WillReturnRows(userRow(5, "x", false, false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_admin=1")).WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	u, created, err = auth.EnsureAdmin(ctx, RegisterInput{Username: "neo", Email: "neo@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, u.IsAdmin && u.IsActive)
}

func TestHallCreate(t *testing.T) {
	f := newFixture(t, hallScoped())
	f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO halls")).
		WithArgs("IMAX", true, now).
		WillReturnResult(sqlmock.NewResult(2, 1))
	h, err := f.halls.Create(ctx, " IMAX ")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), h.ID)

	f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO halls")).WillReturnError(&mysql.MySQLError{Number: 1062})
	_, err = f.halls.Create(ctx, "IMAX")
	assert.ErrorIs(t, err, ErrHallExists)
}
