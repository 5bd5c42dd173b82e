// File: internal/directory/firestore.go
package directory

import (
	"context"
	"strings"
	"time"

	"user_admin_backend/internal/common"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestoreDoc mirrors the stored document. Timestamps are pointers because legacy documents may lack them.
type firestoreDoc struct {
	UserID      string     `firestore:"userId"`
	Email       string     `firestore:"email"`
	FirstName   string     `firestore:"firstName"`
	LastName    string     `firestore:"lastName"`
	Mobile      string     `firestore:"mobile"`
	Role        string     `firestore:"role"`
	CreatedAt   *time.Time `firestore:"createdAt"`
	LastUpdated *time.Time `firestore:"lastUpdated"`
}

type firestoreRepository struct {
	client     *firestore.Client
	collection string
	logger     *zap.Logger
	now        Clock
}

// NewFirestoreRepository creates a directory repository over a Firestore collection.
func NewFirestoreRepository(client *firestore.Client, collection string, logger *zap.Logger) Repository {
	return &firestoreRepository{
		client:     client,
		collection: collection,
		logger:     logger.Named("FirestoreDirectory"),
		now:        systemClock,
	}
}

func (r *firestoreRepository) users() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

func (r *firestoreRepository) List(ctx context.Context) ([]User, error) {
	snaps, err := r.users().Documents(ctx).GetAll()
	if err != nil {
		return nil, storeErr("list", err)
	}
	now := r.now()
	users := make([]User, 0, len(snaps))
	for _, snap := range snaps {
		u, err := r.fromSnapshot(snap, now)
		if err != nil {
			return nil, storeErr("list", err)
		}
		users = append(users, *u)
	}
	return users, nil
}

func (r *firestoreRepository) FindByID(ctx context.Context, id string) (*User, error) {
	snap, err := r.users().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, common.ErrNotFound.WithDetails("User record not found.")
		}
		return nil, storeErr("get", err)
	}
	u, err := r.fromSnapshot(snap, r.now())
	if err != nil {
		return nil, storeErr("get", err)
	}
	return u, nil
}

func (r *firestoreRepository) FindByUID(ctx context.Context, uid string) (*User, error) {
	snaps, err := r.users().Where(fieldUserID, "==", uid).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, storeErr("query", err)
	}
	if len(snaps) == 0 {
		return nil, common.ErrNotFound.WithDetails("No user record for this identity.")
	}
	u, err := r.fromSnapshot(snaps[0], r.now())
	if err != nil {
		return nil, storeErr("query", err)
	}
	return u, nil
}

func (r *firestoreRepository) Insert(ctx context.Context, nu NewUser) (*User, error) {
	data := map[string]interface{}{
		fieldUserID:      nu.UserID,
		fieldEmail:       strings.ToLower(strings.TrimSpace(nu.Email)),
		fieldFirstName:   nu.FirstName,
		fieldLastName:    nu.LastName,
		fieldMobile:      nu.Mobile,
		fieldRole:        string(nu.Role),
		fieldCreatedAt:   firestore.ServerTimestamp,
		fieldLastUpdated: firestore.ServerTimestamp,
	}
	ref, wr, err := r.users().Add(ctx, data)
	if err != nil {
		return nil, storeErr("insert", err)
	}
	// ServerTimestamp resolves to the commit time of the write.
	stamped := wr.UpdateTime
	return &User{
		ID:          ref.ID,
		UserID:      nu.UserID,
		Email:       data[fieldEmail].(string),
		FirstName:   nu.FirstName,
		LastName:    nu.LastName,
		Mobile:      nu.Mobile,
		Role:        nu.Role,
		CreatedAt:   stamped,
		LastUpdated: stamped,
	}, nil
}

func (r *firestoreRepository) Update(ctx context.Context, id string, updates Updates) error {
	fields := updates.fields()
	ups := make([]firestore.Update, 0, len(fields)+1)
	for path, value := range fields {
		ups = append(ups, firestore.Update{Path: path, Value: value})
	}
	ups = append(ups, firestore.Update{Path: fieldLastUpdated, Value: firestore.ServerTimestamp})

	if _, err := r.users().Doc(id).Update(ctx, ups); err != nil {
		if status.Code(err) == codes.NotFound {
			return common.ErrNotFound.WithDetails("User record not found.")
		}
		return storeErr("update", err)
	}
	return nil
}

func (r *firestoreRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.users().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return common.ErrNotFound.WithDetails("User record not found.")
		}
		return storeErr("delete", err)
	}
	return nil
}

func (r *firestoreRepository) fromSnapshot(snap *firestore.DocumentSnapshot, now time.Time) (*User, error) {
	var doc firestoreDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	if doc.CreatedAt == nil || doc.LastUpdated == nil {
		r.logger.Debug("Directory document missing timestamps, defaulting to now", zap.String("id", snap.Ref.ID))
	}
	role := Role(doc.Role)
	if !role.Valid() {
		r.logger.Warn("Directory document has unknown role", zap.String("id", snap.Ref.ID), zap.String("role", doc.Role))
	}
	return &User{
		ID:          snap.Ref.ID,
		UserID:      doc.UserID,
		Email:       doc.Email,
		FirstName:   doc.FirstName,
		LastName:    doc.LastName,
		Mobile:      doc.Mobile,
		Role:        role,
		CreatedAt:   timeOrNow(doc.CreatedAt, now),
		LastUpdated: timeOrNow(doc.LastUpdated, now),
	}, nil
}
