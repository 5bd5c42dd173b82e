package user

import (
	"context"
	"errors"
	"time"

	"user_admin_backend/internal/common"
	"user_admin_backend/internal/config"
	"user_admin_backend/internal/directory"
	"user_admin_backend/internal/identity"
	"user_admin_backend/internal/metrics"

	"go.uber.org/zap"
)

const defaultCompensationTimeout = 10 * time.Second

// Service defines the user management operations.
type Service interface {
	ListUsers(ctx context.Context) ([]directory.User, error)
	GetUserByUID(ctx context.Context, uid string) (*directory.User, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*directory.User, error)
	UpdateUser(ctx context.Context, id string, updates directory.Updates) error
	DeleteUser(ctx context.Context, id string) error
}

// ServiceImplementation implements Service over the directory store and the identity provider.
type ServiceImplementation struct {
	repo     directory.Repository
	identity identity.Provider
	metrics  metrics.Recorder
	cfg      *config.Config
	logger   *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new user service.
func NewService(
	repo directory.Repository,
	idp identity.Provider,
	rec metrics.Recorder,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:     repo,
		identity: idp,
		metrics:  rec,
		cfg:      cfg,
		logger:   logger.Named("UserService"),
	}
}

func outcome(err error) string {
	if err != nil {
		return metrics.OutcomeFailure
	}
	return metrics.OutcomeSuccess
}

// ListUsers returns every directory record in store order.
func (s *ServiceImplementation) ListUsers(ctx context.Context) (users []directory.User, err error) {
	defer func() { s.metrics.RecordUserOperation("list", outcome(err)) }()

	users, err = s.repo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, err
	}
	return users, nil
}

// GetUserByUID returns the record linked to an identity account.
func (s *ServiceImplementation) GetUserByUID(ctx context.Context, uid string) (*directory.User, error) {
	u, err := s.repo.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Info("User not found by UID", zap.String("uid", uid))
		} else {
			s.logger.Error("Error finding user by UID", zap.Error(err), zap.String("uid", uid))
		}
		return nil, err
	}
	return u, nil
}

// CreateUser registers an identity account then inserts its directory record.
// A failed insert triggers a best-effort deletion of the new account; the caller
// always sees the insert error.
func (s *ServiceImplementation) CreateUser(ctx context.Context, req CreateUserRequest) (created *directory.User, err error) {
	defer func() { s.metrics.RecordUserOperation("create", outcome(err)) }()

	role, err := directory.ParseRole(string(req.Role))
	if err != nil {
		return nil, common.NewValidationAPIError(map[string]string{"role": err.Error()})
	}

	reg, err := s.identity.OpenRegistrar(ctx)
	if err != nil {
		s.logger.Error("Failed to open registration handle", zap.Error(err))
		return nil, identity.NewError(identity.KindUnknown, err)
	}
	defer func() {
		if cerr := reg.Close(context.WithoutCancel(ctx)); cerr != nil {
			s.logger.Warn("Failed to close registration handle", zap.Error(cerr))
		}
	}()

	uid, err := reg.Register(ctx, req.Email, req.Password)
	if err != nil {
		s.logger.Warn("Identity registration failed",
			zap.String("email", req.Email),
			zap.String("kind", string(identity.KindOf(err))),
			zap.Error(err))
		return nil, err
	}

	created, err = s.repo.Insert(ctx, createRequestToNewUser(req, uid, role))
	if err != nil {
		s.logger.Error("Failed to insert directory record, compensating", zap.String("uid", uid), zap.Error(err))
		s.compensate(ctx, reg, uid)
		return nil, err
	}

	if err := reg.SignOut(ctx); err != nil {
		s.logger.Warn("Failed to sign out registration session", zap.String("uid", uid), zap.Error(err))
	}

	s.logger.Info("User created successfully", zap.String("id", created.ID), zap.String("uid", uid))
	return created, nil
}

// compensate deletes the just-registered account. It survives request cancellation.
func (s *ServiceImplementation) compensate(ctx context.Context, reg identity.Registrar, uid string) {
	timeout := s.cfg.CompensationTimeout
	if timeout <= 0 {
		timeout = defaultCompensationTimeout
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := reg.DeleteRegistered(cctx); err != nil {
		s.metrics.RecordCompensation(metrics.OutcomeFailure)
		s.logger.Error("Compensating identity deletion failed, account is orphaned",
			zap.Error(&CleanupError{UID: uid, Err: err}))
		return
	}
	s.metrics.RecordCompensation(metrics.OutcomeSuccess)
	s.logger.Info("Compensating identity deletion succeeded", zap.String("uid", uid))
}

// UpdateUser merges updates into the record and stamps lastUpdated. The identity account is untouched.
func (s *ServiceImplementation) UpdateUser(ctx context.Context, id string, updates directory.Updates) (err error) {
	defer func() { s.metrics.RecordUserOperation("update", outcome(err)) }()

	updates, err = updates.Normalize()
	if err != nil {
		return common.NewValidationAPIError(map[string]string{"role": err.Error()})
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		s.logger.Error("Failed to update user", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("User updated", zap.String("id", id))
	return nil
}

// DeleteUser removes the directory record. The identity account is removed too only
// when DeleteRevokesIdentity is set, and a failure there is logged, not returned.
func (s *ServiceImplementation) DeleteUser(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.RecordUserOperation("delete", outcome(err)) }()

	var target *directory.User
	if s.cfg.DeleteRevokesIdentity {
		target, err = s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete user", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("User record deleted", zap.String("id", id))

	if target != nil && target.UserID != "" {
		s.deleteAccount(ctx, target.UserID)
	}
	return nil
}

func (s *ServiceImplementation) deleteAccount(ctx context.Context, uid string) {
	err := s.identity.DeleteAccount(ctx, uid)
	switch {
	case err == nil:
		s.logger.Info("Identity account deleted with its record", zap.String("uid", uid))
	case errors.Is(err, identity.ErrAccountNotFound):
		s.logger.Debug("Identity account already absent", zap.String("uid", uid))
	default:
		s.logger.Error("Failed to delete identity account", zap.Error(&CleanupError{UID: uid, Err: err}))
	}
}
