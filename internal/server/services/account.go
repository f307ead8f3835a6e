package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/dmitrijs2005/gophaccount/internal/server/blob"
	"github.com/dmitrijs2005/gophaccount/internal/server/config"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophaccount/internal/server/security"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var avatarMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpg":  true,
	"image/jpeg": true,
}

// AccountService manages account records: registration, profile and
// password changes, activation and avatars.
type AccountService struct {
	repomanager            repomanager.RepositoryManager
	hasher                 security.Hasher
	sessions               *SessionService
	blobs                  blob.Store
	registrar              *registrar
	phoneRegion            string
	avatarContainer        string
	imagesRootPath         string
	avatarMaxBytes         int64
	revokeOnPasswordChange bool
	revokeOnDeactivation   bool
	logger                 logging.Logger
}

func NewAccountService(m repomanager.RepositoryManager, cfg *config.Config, hasher security.Hasher,
	sessions *SessionService, blobs blob.Store, logger logging.Logger) *AccountService {

	return &AccountService{
		repomanager:            m,
		hasher:                 hasher,
		sessions:               sessions,
		blobs:                  blobs,
		registrar:              newRegistrar(m, hasher, cfg.PhoneDefaultRegion),
		phoneRegion:            cfg.PhoneDefaultRegion,
		avatarContainer:        cfg.AvatarContainer,
		imagesRootPath:         strings.TrimRight(cfg.ImagesRootPath, "/"),
		avatarMaxBytes:         cfg.AvatarMaxBytes,
		revokeOnPasswordChange: cfg.RevokeSessionsOnPasswordChange,
		revokeOnDeactivation:   cfg.RevokeSessionsOnDeactivation,
		logger:                 logger.With("module", "account"),
	}
}

// SignUp registers a new account. For social requests an existing account
// with the same email is returned unchanged.
func (s *AccountService) SignUp(ctx context.Context, req SignUpRequest) (*models.User, error) {
	return s.registrar.signUp(ctx, req)
}

func (s *AccountService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.getUser(ctx, userID)
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	phone, err := normalizePhone(req.Phone, s.phoneRegion)
	if err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.FullName = strings.TrimSpace(req.FullName)
	user.Birthday = req.Birthday
	user.Phone = phone
	user.Gender = req.Gender

	if err := s.repomanager.Users(s.repomanager.Runner().Conn()).Update(ctx, user); err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the password after checking, in order, the old
// password, the confirmation and the password policy.
func (s *AccountService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword, confirmPassword string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		return common.ErrOldPasswordIncorrect
	}

	if newPassword != confirmPassword {
		return common.ErrPasswordsDoNotMatch
	}

	if err := security.CheckPasswordPolicy(newPassword); err != nil {
		return err
	}

	if err := s.setPassword(ctx, user.ID, newPassword); err != nil {
		return err
	}

	if s.revokeOnPasswordChange {
		return s.sessions.GlobalLogout(ctx, user.ID)
	}
	return nil
}

// ChangeAccountStatus activates or deactivates the account with the given
// public identity on behalf of actingUserID.
func (s *AccountService) ChangeAccountStatus(ctx context.Context, actingUserID int64, identity string, active bool) (*models.User, error) {
	repo := s.repomanager.Users(s.repomanager.Runner().Conn())

	user, err := repo.GetByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if user.ID == actingUserID && !active {
		return nil, common.ErrSelfDeactivationForbidden
	}

	user.Status = models.StatusActive
	if !active {
		user.Status = models.StatusInactive
	}

	if err := repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	s.logger.Info(ctx, "account status changed", "identity", identity, "status", user.Status.String(), "by", actingUserID)

	if !active && s.revokeOnDeactivation {
		if err := s.sessions.GlobalLogout(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// ForgotPassword resets the password of the account registered under email
// to a generated value and returns it. The generated value is not subject to
// the password policy.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) (string, error) {
	repo := s.repomanager.Users(s.repomanager.Runner().Conn())

	user, err := repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrUserNotFound
		}
		return "", fmt.Errorf("error loading user: %w", err)
	}

	password := uuid.NewString()
	if err := s.setPassword(ctx, user.ID, password); err != nil {
		return "", err
	}
	return password, nil
}

// UploadAvatar stores a new avatar image and drops the previous one.
func (s *AccountService) UploadAvatar(ctx context.Context, userID int64, file *AvatarFile) (*models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if file == nil || len(file.Data) == 0 {
		return nil, common.ErrFileNull
	}
	if int64(len(file.Data)) > s.avatarMaxBytes {
		return nil, common.ErrFileInvalidSize
	}
	if !avatarMimeTypes[file.ContentType] {
		return nil, common.ErrFileInvalidType
	}

	if strings.TrimSpace(user.Avatar) != "" {
		oldKey := path.Base(user.Avatar)
		if err := s.blobs.Delete(ctx, s.avatarContainer, oldKey); err != nil {
			s.logger.Warn(ctx, "failed to delete previous avatar", "key", oldKey, "error", err)
		}
	}

	key := uuid.NewString()
	if _, err := s.blobs.Put(ctx, s.avatarContainer, key, file.ContentType, file.Data); err != nil {
		return nil, fmt.Errorf("error storing avatar: %w", err)
	}

	user.Avatar = s.imagesRootPath + "/" + key
	user.AvatarMimeType = file.ContentType

	if err := s.repomanager.Users(s.repomanager.Runner().Conn()).Update(ctx, user); err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return user, nil
}

// --- helpers below ---

func (s *AccountService) getUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repomanager.Users(s.repomanager.Runner().Conn()).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

func (s *AccountService) setPassword(ctx context.Context, userID int64, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	err = s.repomanager.Users(s.repomanager.Runner().Conn()).UpdatePassword(ctx, userID, hash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("error updating password: %w", err)
	}
	return nil
}

// registrar holds the sign-up path shared by AccountService.SignUp and
// social login.
type registrar struct {
	repomanager repomanager.RepositoryManager
	hasher      security.Hasher
	phoneRegion string
}

func newRegistrar(m repomanager.RepositoryManager, hasher security.Hasher, phoneRegion string) *registrar {
	return &registrar{repomanager: m, hasher: hasher, phoneRegion: phoneRegion}
}

func (r *registrar) signUp(ctx context.Context, req SignUpRequest) (*models.User, error) {
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)

	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	phone, err := normalizePhone(req.Phone, r.phoneRegion)
	if err != nil {
		return nil, err
	}

	repo := r.repomanager.Users(r.repomanager.Runner().Conn())

	existing, err := repo.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		if req.Social {
			return existing, nil
		}
		return nil, common.ErrEmailInUse
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !req.Social {
		if err := security.CheckPasswordPolicy(req.Password); err != nil {
			return nil, err
		}
	}

	hash, err := r.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	user := &models.User{
		Identity:     newIdentity(),
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Birthday:     req.Birthday,
		Phone:        phone,
		Gender:       req.Gender,
		Status:       models.StatusActive,
		Social:       req.Social,
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrEmailInUse) && req.Social {
			// lost a race with a concurrent social login for the same email
			return repo.GetByEmail(ctx, req.Email)
		}
		if errors.Is(err, common.ErrEmailInUse) {
			return nil, common.ErrEmailInUse
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return created, nil
}

func newIdentity() string {
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
}

func generatedPassword() (string, error) {
	p, err := common.MakeRandBase64String(24)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return p, nil
}
