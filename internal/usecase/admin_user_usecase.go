package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// AdminUserUsecase は管理コンソールのユーザーCRUDです。
type AdminUserUsecase struct {
	users     repo.UserRepository
	auditRepo repo.AuditLogRepository
}

func NewAdminUserUsecase(users repo.UserRepository, auditRepo repo.AuditLogRepository) *AdminUserUsecase {
	return &AdminUserUsecase{users: users, auditRepo: auditRepo}
}

type AdminUpdateUserInput struct {
	Role     string
	IsActive *bool
}

type UserListOutput struct {
	Items []model.User `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

func (u *AdminUserUsecase) List(ctx context.Context, page int, limit int) (UserListOutput, error) {
	if page < 1 {
		return UserListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return UserListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	items, total, err := u.users.List(ctx, repo.UserListQuery{Page: page, Limit: limit})
	if err != nil {
		return UserListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return UserListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (u *AdminUserUsecase) Get(ctx context.Context, userID int64) (model.User, error) {
	if userID <= 0 {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.User{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return user, nil
}

// ロール変更・有効/無効の切り替え（管理者）
func (u *AdminUserUsecase) Update(ctx context.Context, actorUserID int64, userID int64, in AdminUpdateUserInput) (model.User, error) {
	if userID <= 0 {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Role != "" && in.Role != string(model.RoleUser) && in.Role != string(model.RoleAdmin) {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid role")
	}

	before, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.User{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	after := before
	if in.Role != "" {
		after.Role = model.Role(in.Role)
	}
	if in.IsActive != nil {
		after.IsActive = *in.IsActive
	}

	if err := u.users.Update(ctx, after); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.User{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.writeAudit(ctx, actorUserID, model.AuditActionUpdateUser, userID, before, after)
	return after, nil
}

// ユーザー削除（管理者）。自分自身は消せない。
func (u *AdminUserUsecase) Delete(ctx context.Context, actorUserID int64, userID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if userID == actorUserID {
		return NewHTTPError(http.StatusBadRequest, "cannot delete yourself")
	}

	if err := u.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.writeAudit(ctx, actorUserID, model.AuditActionDeleteUser, userID, nil, nil)
	return nil
}

// ベストエフォート。失敗は本処理を巻き戻さずログに残す。
func (u *AdminUserUsecase) writeAudit(ctx context.Context, actorUserID int64, action model.AuditAction, userID int64, before interface{}, after interface{}) {
	beforeJSON, _ := json.Marshal(before)
	afterJSON, _ := json.Marshal(after)

	err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       action,
		ResourceType: model.AuditResourceUser,
		ResourceID:   strconv.FormatInt(userID, 10),
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
		CreatedAt:    time.Now(),
	})
	if err != nil {
		log.Printf("audit write failed: action=%s resource_id=%d err=%v", action, userID, err)
	}
}
