package firebase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"user_admin_backend/internal/config"
	"user_admin_backend/internal/identity"
)

const (
	// maxGetUsersBatch is the Admin SDK limit for a single GetUsers call.
	maxGetUsersBatch = 100
	emulatorHostEnv  = "FIREBASE_AUTH_EMULATOR_HOST"
)

// authClient is the subset of *auth.Client used here.
type authClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
	RevokeRefreshTokens(ctx context.Context, uid string) error
	GetUsers(ctx context.Context, identifiers []auth.UserIdentifier) (*auth.GetUsersResult, error)
}

// FirebaseService provides methods to interact with Firebase services, primarily authentication.
type FirebaseService struct {
	app        *firebase.App
	authClient authClient
	logger     *zap.Logger
}

var _ identity.Provider = (*FirebaseService)(nil)

// NewFirebaseService initializes the Firebase Admin SDK and creates a new FirebaseService.
// When an auth emulator host is configured the SDK talks to it without credentials.
func NewFirebaseService(cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	logger = logger.Named("FirebaseService")

	var opts []option.ClientOption
	if cfg.FirebaseAuthEmulatorHost != "" {
		logger.Info("Using Firebase Auth emulator", zap.String("host", cfg.FirebaseAuthEmulatorHost))
		// The Admin SDK only reads the emulator host from the environment.
		if os.Getenv(emulatorHostEnv) == "" {
			if err := os.Setenv(emulatorHostEnv, cfg.FirebaseAuthEmulatorHost); err != nil {
				return nil, fmt.Errorf("error configuring auth emulator: %w", err)
			}
		}
		opts = append(opts, option.WithoutAuthentication())
	} else {
		if cfg.FirebaseServiceAccountKeyPath == "" {
			logger.Error("Firebase service account key path is not configured.")
			return nil, fmt.Errorf("firebase service account key path is required")
		}
		cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
		opts = append(opts, option.WithCredentialsFile(cleanPath))
	}

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}

	app, err := firebase.NewApp(context.Background(), conf, opts...)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Auth(context.Background())
	if err != nil {
		logger.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return &FirebaseService{
		app:        app,
		authClient: client,
		logger:     logger,
	}, nil
}

// Firestore opens a Firestore client on the same Firebase app. The caller closes it.
func (s *FirebaseService) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := s.app.Firestore(ctx)
	if err != nil {
		s.logger.Error("Failed to get Firestore client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firestore client: %w", err)
	}
	return client, nil
}

// VerifyIDToken verifies a Firebase ID token and returns the operator it identifies.
func (s *FirebaseService) VerifyIDToken(ctx context.Context, idToken string) (*identity.Token, error) {
	if idToken == "" {
		return nil, fmt.Errorf("ID token must not be empty")
	}

	token, err := s.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.logger.Warn("Firebase ID token verification failed", zap.Error(err))
		return nil, fmt.Errorf("failed to verify Firebase ID token: %w", err)
	}

	email, _ := token.Claims["email"].(string)
	s.logger.Debug("Firebase ID token verified successfully", zap.String("uid", token.UID))
	return &identity.Token{UID: token.UID, Email: email}, nil
}

// RevokeSessions revokes all refresh tokens for a given user.
func (s *FirebaseService) RevokeSessions(ctx context.Context, uid string) error {
	if err := s.authClient.RevokeRefreshTokens(ctx, uid); err != nil {
		s.logger.Error("Failed to revoke refresh tokens", zap.Error(err), zap.String("uid", uid))
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	s.logger.Info("Successfully revoked refresh tokens for user", zap.String("uid", uid))
	return nil
}

// DeleteAccount removes the identity account. A missing account yields identity.ErrAccountNotFound.
func (s *FirebaseService) DeleteAccount(ctx context.Context, uid string) error {
	if err := s.authClient.DeleteUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return identity.ErrAccountNotFound
		}
		return mapAuthError(err)
	}
	s.logger.Info("Deleted identity account", zap.String("uid", uid))
	return nil
}

// MissingAccounts looks uids up in batches and returns those the provider does not know.
func (s *FirebaseService) MissingAccounts(ctx context.Context, uids []string) ([]string, error) {
	var missing []string
	for start := 0; start < len(uids); start += maxGetUsersBatch {
		end := start + maxGetUsersBatch
		if end > len(uids) {
			end = len(uids)
		}
		ids := make([]auth.UserIdentifier, 0, end-start)
		for _, uid := range uids[start:end] {
			ids = append(ids, auth.UIDIdentifier{UID: uid})
		}
		result, err := s.authClient.GetUsers(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to look up accounts: %w", err)
		}
		for _, nf := range result.NotFound {
			if id, ok := nf.(auth.UIDIdentifier); ok {
				missing = append(missing, id.UID)
			}
		}
	}
	return missing, nil
}

// OpenRegistrar returns a registration handle bound to this call only.
func (s *FirebaseService) OpenRegistrar(ctx context.Context) (identity.Registrar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &registrar{svc: s}, nil
}

// registrar holds the account created by one Register call. Signing out revokes
// the new account's refresh tokens so the operator's session is never touched.
type registrar struct {
	svc *FirebaseService

	mu       sync.Mutex
	uid      string
	signedIn bool
	closed   bool
}

func (r *registrar) Register(ctx context.Context, email, password string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", errors.New("registrar is closed")
	}
	if r.uid != "" {
		return "", errors.New("registrar already used")
	}
	if err := identity.CheckCredentials(email, password); err != nil {
		return "", err
	}

	rec, err := r.svc.authClient.CreateUser(ctx, (&auth.UserToCreate{}).Email(email).Password(password))
	if err != nil {
		r.svc.logger.Warn("Identity account creation failed", zap.String("email", email), zap.Error(err))
		return "", mapAuthError(err)
	}
	r.uid = rec.UID
	r.signedIn = true
	r.svc.logger.Info("Identity account created", zap.String("uid", rec.UID))
	return rec.UID, nil
}

func (r *registrar) DeleteRegistered(ctx context.Context) error {
	r.mu.Lock()
	uid := r.uid
	r.mu.Unlock()

	if uid == "" {
		return errors.New("no account registered")
	}
	if err := r.svc.authClient.DeleteUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return identity.ErrAccountNotFound
		}
		return mapAuthError(err)
	}

	r.mu.Lock()
	r.signedIn = false
	r.mu.Unlock()
	return nil
}

func (r *registrar) SignOut(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.signOutLocked(ctx)
}

func (r *registrar) signOutLocked(ctx context.Context) error {
	if !r.signedIn {
		return nil
	}
	if err := r.svc.authClient.RevokeRefreshTokens(ctx, r.uid); err != nil {
		return fmt.Errorf("sign out of registration session: %w", err)
	}
	r.signedIn = false
	return nil
}

func (r *registrar) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.signOutLocked(ctx)
}

// mapAuthError classifies Admin SDK errors into identity kinds.
func mapAuthError(err error) error {
	switch {
	case err == nil:
		return nil
	case auth.IsEmailAlreadyExists(err):
		return identity.NewError(identity.KindDuplicateEmail, err)
	default:
		return identity.NewError(identity.KindUnknown, err)
	}
}
