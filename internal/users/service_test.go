package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wowdasare/everpack-system-hnd/internal/shared"
)

type memoryRepo struct {
	nextID int64
	users  map[int64]User
	hashes map[int64]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, users: make(map[int64]User), hashes: make(map[int64]string)}
}

func (m *memoryRepo) List(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, errors.New("users: not found")
	}
	return u, nil
}

func (m *memoryRepo) Insert(ctx context.Context, input CreateInput, passwordHash string) (int64, error) {
	for _, u := range m.users {
		if u.Username == input.Username {
			return 0, ErrUsernameTaken
		}
	}
	id := m.nextID
	m.nextID++
	m.users[id] = User{
		ID:       id,
		Username: input.Username,
		FullName: input.FullName,
		Email:    input.Email,
		Role:     input.Role,
		IsActive: input.IsActive,
	}
	m.hashes[id] = passwordHash
	return id, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, input UpdateInput) error {
	u, ok := m.users[id]
	if !ok {
		return errors.New("users: not found")
	}
	u.Username = input.Username
	u.FullName = input.FullName
	u.Email = input.Email
	u.IsActive = input.IsActive
	m.users[id] = u
	return nil
}

func (m *memoryRepo) SetRole(ctx context.Context, id int64, role string) error {
	u, ok := m.users[id]
	if !ok {
		return errors.New("users: not found")
	}
	u.Role = role
	m.users[id] = u
	return nil
}

func (m *memoryRepo) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	if _, ok := m.users[id]; !ok {
		return errors.New("users: not found")
	}
	m.hashes[id] = hash
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return errors.New("users: not found")
	}
	delete(m.users, id)
	delete(m.hashes, id)
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestCreateHashesPasswordAndNormalisesRole(t *testing.T) {
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit)

	id, err := svc.Create(context.Background(), 1, CreateInput{
		Username: "  akosua ",
		FullName: "Akosua Boateng",
		Password: "correcthorse",
		Role:     "Manager",
		IsActive: true,
	})
	require.NoError(t, err)

	user, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "akosua", user.Username)
	require.Equal(t, "manager", user.Role)

	hash := repo.hashes[id]
	require.NotEqual(t, "correcthorse", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correcthorse")))

	require.Len(t, audit.logs, 1)
	require.Equal(t, "users:create", audit.logs[0].Action)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), 1, CreateInput{Username: "ama", Password: "correcthorse", Role: "supervisor"})
	require.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.Create(context.Background(), 1, CreateInput{Username: "ama", Password: "short", Role: "manager"})
	require.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = svc.Create(context.Background(), 1, CreateInput{Username: "   ", Password: "correcthorse", Role: "manager"})
	require.Error(t, err)
}

func TestCreateRefusesDuplicateUsername(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), 1, CreateInput{Username: "ama", Password: "correcthorse", Role: "manager"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), 1, CreateInput{Username: "ama", Password: "correcthorse", Role: "sales_representative"})
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestChangeRoleValidatesAgainstRoleTable(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	id, err := svc.Create(context.Background(), 1, CreateInput{Username: "kofi", Password: "correcthorse", Role: "sales_representative"})
	require.NoError(t, err)

	require.NoError(t, svc.ChangeRole(context.Background(), 1, id, "manager"))
	user, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "manager", user.Role)

	err = svc.ChangeRole(context.Background(), 1, id, "root")
	require.ErrorIs(t, err, ErrInvalidRole)
	user, err = svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "manager", user.Role)
}

func TestResetPasswordReplacesHash(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	id, err := svc.Create(context.Background(), 1, CreateInput{Username: "adjoa", Password: "correcthorse", Role: "manager"})
	require.NoError(t, err)
	before := repo.hashes[id]

	require.ErrorIs(t, svc.ResetPassword(context.Background(), 1, id, "short"), ErrPasswordTooShort)
	require.Equal(t, before, repo.hashes[id])

	require.NoError(t, svc.ResetPassword(context.Background(), 1, id, "batterystaple"))
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[id]), []byte("batterystaple")))
}

func TestDeleteRecordsAudit(t *testing.T) {
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit)

	id, err := svc.Create(context.Background(), 1, CreateInput{Username: "yaw", Password: "correcthorse", Role: "manager"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), 2, id))
	_, err = svc.Get(context.Background(), id)
	require.Error(t, err)

	last := audit.logs[len(audit.logs)-1]
	require.Equal(t, "users:delete", last.Action)
	require.Equal(t, int64(2), last.ActorID)
}
