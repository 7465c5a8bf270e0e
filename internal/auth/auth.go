// Package auth signs users up and in, and issues their tokens.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"moonjin/internal/apperr"
	"moonjin/internal/dto"
	"moonjin/internal/models"
)

type SignupData struct {
	Email       string `json:"email" validate:"required,email,max=191"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	Nickname    string `json:"nickname" validate:"required,max=64"`
	Role        int    `json:"role" validate:"oneof=0 1"`
	MoonjinID   string `json:"moonjinId" validate:"omitempty,alphanum,max=64"`
	Description string `json:"description" validate:"max=500"`
	Image       string `json:"image" validate:"omitempty,url"`
}

// SocialSignupData comes from a provider the caller has already verified.
type SocialSignupData struct {
	Provider    string `json:"provider" validate:"required,oneof=naver kakao google"`
	ProviderID  string `json:"providerId" validate:"required"`
	Email       string `json:"email" validate:"required,email,max=191"`
	Nickname    string `json:"nickname" validate:"required,max=64"`
	Role        int    `json:"role" validate:"oneof=0 1"`
	MoonjinID   string `json:"moonjinId" validate:"omitempty,alphanum,max=64"`
	Description string `json:"description" validate:"max=500"`
	Image       string `json:"image" validate:"omitempty,url"`
}

// errWriterStep marks a failure while creating the writer profile.
var errWriterStep = errors.New("create writer info")

type Service struct {
	db  *gorm.DB
	log logrus.FieldLogger

	// HashCost is the bcrypt cost for new passwords.
	HashCost int
}

func NewService(db *gorm.DB, log logrus.FieldLogger) *Service {
	return &Service{db: db, log: log, HashCost: bcrypt.DefaultCost}
}

func signupRole(role int) (models.Role, error) {
	r := models.Role(role)
	if !r.Valid() {
		return 0, apperr.SignupRoleError
	}
	return r, nil
}

// A writer without a moonjin id gets no writer profile yet.
func needsWriterInfo(role models.Role, moonjinID string) bool {
	return role == models.RoleWriter && moonjinID != ""
}

// LocalSignup creates the user and, for writers, the writer profile in one
// transaction.
func (s *Service) LocalSignup(ctx context.Context, data SignupData) (dto.User, error) {
	role, err := signupRole(data.Role)
	if err != nil {
		return dto.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(data.Password), s.HashCost)
	if err != nil {
		s.log.WithError(err).Error("hash password")
		return dto.User{}, apperr.SignupError
	}
	h := string(hash)
	user := models.User{
		Email:       data.Email,
		Nickname:    data.Nickname,
		Password:    &h,
		Role:        role,
		Image:       data.Image,
		Description: data.Description,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.CreateUser(tx, &user); err != nil {
			return err
		}
		if needsWriterInfo(role, data.MoonjinID) {
			return createWriterInfo(tx, user.ID, data.MoonjinID, data.Description)
		}
		return nil
	})
	if err != nil {
		return dto.User{}, s.signupError(err, apperr.SignupError, data.Email)
	}
	return dto.FromUser(&user), nil
}

func createWriterInfo(tx *gorm.DB, userID uint, moonjinID, description string) error {
	err := models.CreateWriterInfo(tx, &models.WriterInfo{
		UserID:      userID,
		MoonjinID:   moonjinID,
		Description: description,
	})
	if err != nil && !errors.Is(err, models.ErrDuplicateMoonjinID) {
		return fmt.Errorf("%w: %v", errWriterStep, err)
	}
	return err
}

func (s *Service) signupError(err error, generic *apperr.Error, email string) error {
	switch {
	case errors.Is(err, models.ErrDuplicateEmail):
		return apperr.EmailAlreadyExist
	case errors.Is(err, models.ErrDuplicateNickname):
		return apperr.NicknameAlreadyExist
	case errors.Is(err, models.ErrDuplicateMoonjinID):
		return apperr.MoonjinEmailAlreadyExist
	case errors.Is(err, errWriterStep):
		s.log.WithError(err).WithField("email", email).Error("writer signup failed")
		return apperr.WriterSignupError
	}
	s.log.WithError(err).WithField("email", email).Error("signup failed")
	return generic
}

// SocialSignup creates a passwordless user linked to a provider identity.
func (s *Service) SocialSignup(ctx context.Context, data SocialSignupData) (dto.User, error) {
	role, err := signupRole(data.Role)
	if err != nil {
		return dto.User{}, err
	}
	user := models.User{
		Email:       data.Email,
		Nickname:    data.Nickname,
		Role:        role,
		Image:       data.Image,
		Description: data.Description,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.CreateUser(tx, &user); err != nil {
			return err
		}
		err := models.CreateOAuth(tx, &models.OAuth{
			Provider:   data.Provider,
			ProviderID: data.ProviderID,
			UserID:     user.ID,
		})
		if err != nil {
			return err
		}
		if needsWriterInfo(role, data.MoonjinID) {
			return createWriterInfo(tx, user.ID, data.MoonjinID, data.Description)
		}
		return nil
	})
	if err != nil {
		return dto.User{}, s.signupError(err, apperr.SocialSignupError, data.Email)
	}
	return dto.FromUser(&user), nil
}

func (s *Service) SocialLogin(ctx context.Context, provider, providerID string) (dto.User, error) {
	user, err := models.GetUserByOAuth(s.db.WithContext(ctx), provider, providerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.User{}, apperr.UserNotFoundInSocial
	}
	if err != nil {
		s.log.WithError(err).WithField("provider", provider).Error("social login lookup")
		return dto.User{}, apperr.LoginError
	}
	return dto.FromUser(user), nil
}

func (s *Service) LocalLogin(ctx context.Context, email, password string) (dto.User, error) {
	user, err := models.GetUserByEmail(s.db.WithContext(ctx), email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.User{}, apperr.UserNotFound
	}
	if err != nil {
		s.log.WithError(err).Error("login lookup")
		return dto.User{}, apperr.LoginError
	}
	if user.Password == nil {
		return dto.User{}, apperr.SocialUserError
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(password)) != nil {
		return dto.User{}, apperr.InvalidPassword
	}
	return dto.FromUser(user), nil
}

func (s *Service) PasswordChange(ctx context.Context, userID uint, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.HashCost)
	if err != nil {
		s.log.WithError(err).Error("hash password")
		return apperr.PasswordChangeError
	}
	err = models.UpdatePassword(s.db.WithContext(ctx), userID, string(hash))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.UserNotFound
	}
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("password change")
		return apperr.PasswordChangeError
	}
	return nil
}

func (s *Service) GetUser(ctx context.Context, userID uint) (dto.User, error) {
	user, err := models.GetUserByID(s.db.WithContext(ctx), userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.User{}, apperr.UserNotFound
	}
	if err != nil {
		return dto.User{}, err
	}
	return dto.FromUser(user), nil
}
