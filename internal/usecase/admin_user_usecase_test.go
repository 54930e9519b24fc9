package usecase_test

import (
	"context"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestAdminUserUsecase_Update_ChangesRole(t *testing.T) {
	users := new(mockUserRepository)
	users.On("FindByID", mock.Anything, int64(1)).
		Return(model.User{ID: 1, Email: "alice@example.com", Role: model.RoleUser, IsActive: true}, nil)
	users.On("Update", mock.Anything, mock.MatchedBy(func(u model.User) bool {
		return u.ID == 1 && u.Role == model.RoleAdmin
	})).Return(nil)
	audit := &fakeAuditLogRepo{}
	uc := usecase.NewAdminUserUsecase(users, audit)

	got, err := uc.Update(context.Background(), 99, 1, usecase.AdminUpdateUserInput{Role: "ADMIN"})

	assert.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, got.Role)
	if assert.Len(t, audit.logs, 1) {
		assert.Equal(t, model.AuditActionUpdateUser, audit.logs[0].Action)
	}
	users.AssertExpectations(t)
}

func TestAdminUserUsecase_Update_RejectsUnknownRole(t *testing.T) {
	uc := usecase.NewAdminUserUsecase(new(mockUserRepository), &fakeAuditLogRepo{})

	_, err := uc.Update(context.Background(), 99, 1, usecase.AdminUpdateUserInput{Role: "SUPERUSER"})

	assertHTTPStatus(t, err, 400)
	assertErrContains(t, err, "invalid role")
}

// 自分自身の削除はできない
func TestAdminUserUsecase_Delete_SelfForbidden(t *testing.T) {
	uc := usecase.NewAdminUserUsecase(new(mockUserRepository), &fakeAuditLogRepo{})

	err := uc.Delete(context.Background(), 99, 99)

	assertHTTPStatus(t, err, 400)
	assertErrContains(t, err, "cannot delete yourself")
}

func TestAdminUserUsecase_Delete_WritesAudit(t *testing.T) {
	users := new(mockUserRepository)
	users.On("Delete", mock.Anything, int64(1)).Return(nil)
	audit := &fakeAuditLogRepo{}
	uc := usecase.NewAdminUserUsecase(users, audit)

	err := uc.Delete(context.Background(), 99, 1)

	assert.NoError(t, err)
	if assert.Len(t, audit.logs, 1) {
		assert.Equal(t, model.AuditActionDeleteUser, audit.logs[0].Action)
		assert.Equal(t, "1", audit.logs[0].ResourceID)
	}
	users.AssertExpectations(t)
}

func TestAdminUserUsecase_Get_NotFound(t *testing.T) {
	users := new(mockUserRepository)
	users.On("FindByID", mock.Anything, int64(5)).Return(model.User{}, repo.ErrNotFound)
	uc := usecase.NewAdminUserUsecase(users, &fakeAuditLogRepo{})

	_, err := uc.Get(context.Background(), 5)

	assertHTTPStatus(t, err, 404)
}
