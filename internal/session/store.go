package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"snmvm/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoSession is returned when no usable session is stored.
var ErrNoSession = errors.New("no active session; run `snmvm login` first")

// Session is one stored login.
type Session struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;not null"`
	BaseURL     string `gorm:"not null"`
	Token       string `gorm:"not null"`
	Subject     string
	DisplayName string
	Email       string
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Expired reports whether the token expiry is known and has passed.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// Viewer is the name the client uses for the current user in delete
// checks, resolved like an author name. It is "" when the token carries no
// identity.
func (s *Session) Viewer() string {
	if s.DisplayName == "" && s.Email == "" {
		return ""
	}
	rec := &models.AuthorRecord{Email: s.Email}
	if s.DisplayName != "" {
		rec.Profile = &models.ProfileRecord{FullName: s.DisplayName}
	}
	return rec.DisplayName()
}

// Claims are the token claims the client reads. The signature is never
// checked client-side; the backend does that.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// DecodeClaims reads the claims of a JWT without verifying it. Opaque
// tokens yield an error and are still usable as bearer credentials.
func DecodeClaims(token string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// Store reads and writes sessions.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore wraps an already migrated database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Save stores (or replaces) the session called name.
func (s *Store) Save(ctx context.Context, name, baseURL, token string) (*Session, error) {
	name = strings.TrimSpace(name)
	token = strings.TrimSpace(token)
	if name == "" {
		return nil, models.NewValidationError("session name is required")
	}
	if token == "" {
		return nil, models.NewValidationError("token is required")
	}

	sess := &Session{Name: name, BaseURL: baseURL, Token: token}
	if claims, err := DecodeClaims(token); err == nil {
		sess.Subject = claims.Subject
		sess.Email = claims.Email
		sess.DisplayName = claims.Name
		if claims.ExpiresAt != nil {
			exp := claims.ExpiresAt.Time
			sess.ExpiresAt = &exp
		}
	}
	if sess.Expired(s.now()) {
		return nil, models.NewValidationError("token is already expired")
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"base_url", "token", "subject", "display_name", "email", "expires_at", "updated_at"}),
	}).Create(sess).Error
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, name)
}

// Get returns the session called name.
func (s *Store) Get(ctx context.Context, name string) (*Session, error) {
	var sess Session
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("session", name)
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Active returns the most recently saved session that has not expired.
func (s *Store) Active(ctx context.Context) (*Session, error) {
	var sessions []Session
	if err := s.db.WithContext(ctx).Order("updated_at desc").Find(&sessions).Error; err != nil {
		return nil, err
	}
	now := s.now()
	for i := range sessions {
		if !sessions[i].Expired(now) {
			return &sessions[i], nil
		}
	}
	return nil, ErrNoSession
}

// Delete removes the session called name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res := s.db.WithContext(ctx).Where("name = ?", name).Delete(&Session{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("session", name)
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
