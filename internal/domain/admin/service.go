package admin

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/dentalcare/clinic/internal/platform/auth"
	"github.com/dentalcare/clinic/internal/platform/blobstore"
	"github.com/dentalcare/clinic/internal/platform/db"
	"github.com/dentalcare/clinic/internal/platform/notification"
	"github.com/dentalcare/clinic/internal/platform/sequence"
	"github.com/dentalcare/clinic/pkg/apperr"
)

// ErrAccountInactive is returned when a pending or suspended user tries to
// sign in with a password.
var ErrAccountInactive = errors.New("account is not active")

const (
	otpDigits      = 6
	maxOTPAttempts = 5
)

// Options carries the collaborators the admin service talks to.
type Options struct {
	Images      blobstore.ImageStore
	Mailer      *notification.Mailer
	Tokens      *auth.TokenIssuer
	Revocations *auth.RevocationStore
	OTPTTL      time.Duration
}

type Service struct {
	branches BranchRepository
	services ClinicServiceRepository
	users    UserRepository
	otps     OTPRepository
	ids      *sequence.Generator
	opts     Options
	now      func() time.Time
}

func NewService(branches BranchRepository, services ClinicServiceRepository, users UserRepository,
	otps OTPRepository, ids *sequence.Generator, opts Options) *Service {
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = 10 * time.Minute
	}
	if opts.Revocations == nil {
		opts.Revocations = auth.NewRevocationStore()
	}
	return &Service{
		branches: branches, services: services, users: users, otps: otps,
		ids: ids, opts: opts, now: time.Now,
	}
}

// dropImage removes an image that is no longer referenced. Failures are
// logged; the record change has already been made.
func (s *Service) dropImage(ctx context.Context, id string) {
	if id == "" || s.opts.Images == nil {
		return
	}
	if err := s.opts.Images.Delete(ctx, id); err != nil && !errors.Is(err, blobstore.ErrImageNotFound) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("image_id", id).Msg("delete image")
	}
}

// -- Branch --

func validateBranch(b *Branch) error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return apperr.Required("name")
	}
	b.Code = strings.ToUpper(strings.TrimSpace(b.Code))
	if b.Code == "" {
		return apperr.Required("code")
	}
	if b.Email != "" {
		if _, err := mail.ParseAddress(b.Email); err != nil {
			return apperr.Invalid("email", "not a valid email address")
		}
	}
	return nil
}

func (s *Service) CreateBranch(ctx context.Context, b *Branch) error {
	if err := validateBranch(b); err != nil {
		return err
	}
	if b.Active == nil {
		b.Active = boolPtr(true)
	}
	// letterheads only arrive through UploadLetterhead
	b.LetterheadURL, b.LetterheadID = "", ""
	return s.branches.Create(ctx, b)
}

func (s *Service) GetBranch(ctx context.Context, id uuid.UUID) (*Branch, error) {
	return s.branches.GetByID(ctx, id)
}

func (s *Service) ListBranches(ctx context.Context, activeOnly bool, limit, offset int) ([]*Branch, int, error) {
	return s.branches.List(ctx, activeOnly, limit, offset)
}

func (s *Service) UpdateBranch(ctx context.Context, b *Branch) error {
	prev, err := s.branches.GetByID(ctx, b.ID)
	if err != nil {
		return err
	}
	if err := validateBranch(b); err != nil {
		return err
	}
	if b.Active == nil {
		b.Active = prev.Active
	}
	b.LetterheadURL, b.LetterheadID = prev.LetterheadURL, prev.LetterheadID
	b.CreatedAt = prev.CreatedAt
	return s.branches.Update(ctx, b)
}

func (s *Service) DeleteBranch(ctx context.Context, id uuid.UUID) error {
	prev, err := s.branches.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.branches.Delete(ctx, id); err != nil {
		return err
	}
	s.dropImage(ctx, prev.LetterheadID)
	return nil
}

// SetLetterhead points the branch at a stored image and removes the one it
// replaces. When the branch cannot be updated the new image is removed.
func (s *Service) SetLetterhead(ctx context.Context, id uuid.UUID, img *blobstore.Stored) (*Branch, error) {
	b, err := s.branches.GetByID(ctx, id)
	if err != nil {
		s.dropImage(ctx, img.ID)
		return nil, err
	}
	old := b.LetterheadID
	b.LetterheadURL, b.LetterheadID = img.URL, img.ID
	if err := s.branches.Update(ctx, b); err != nil {
		s.dropImage(ctx, img.ID)
		return nil, err
	}
	if old != img.ID {
		s.dropImage(ctx, old)
	}
	return b, nil
}

// -- Clinic service --

func validateClinicService(cs *ClinicService) error {
	cs.Name = strings.TrimSpace(cs.Name)
	if cs.Name == "" {
		return apperr.Required("name")
	}
	cs.Code = strings.ToUpper(strings.TrimSpace(cs.Code))
	if cs.Price < 0 {
		return apperr.Invalid("price", "must not be negative")
	}
	if cs.DurationMinutes < 0 {
		return apperr.Invalid("durationMinutes", "must not be negative")
	}
	return nil
}

func (s *Service) CreateClinicService(ctx context.Context, cs *ClinicService) error {
	if err := validateClinicService(cs); err != nil {
		return err
	}
	if cs.Active == nil {
		cs.Active = boolPtr(true)
	}
	return s.services.Create(ctx, cs)
}

func (s *Service) GetClinicService(ctx context.Context, id uuid.UUID) (*ClinicService, error) {
	return s.services.GetByID(ctx, id)
}

func (s *Service) ListClinicServices(ctx context.Context, activeOnly bool, limit, offset int) ([]*ClinicService, int, error) {
	return s.services.List(ctx, activeOnly, limit, offset)
}

func (s *Service) UpdateClinicService(ctx context.Context, cs *ClinicService) error {
	prev, err := s.services.GetByID(ctx, cs.ID)
	if err != nil {
		return err
	}
	if err := validateClinicService(cs); err != nil {
		return err
	}
	if cs.Active == nil {
		cs.Active = prev.Active
	}
	cs.CreatedAt = prev.CreatedAt
	return s.services.Update(ctx, cs)
}

func (s *Service) DeleteClinicService(ctx context.Context, id uuid.UUID) error {
	return s.services.Delete(ctx, id)
}

// -- User --

func (s *Service) validateUser(ctx context.Context, u *User) error {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return apperr.Required("name")
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" {
		return apperr.Required("email")
	}
	addr, err := mail.ParseAddress(u.Email)
	if err != nil || addr.Address != u.Email {
		return apperr.Invalid("email", "not a valid email address")
	}
	if u.Role == "" {
		return apperr.Required("role")
	}
	if !auth.ValidRole(u.Role) {
		return apperr.Invalid("role", "unknown role %q", u.Role)
	}
	if u.BranchID != nil {
		if _, err := s.branches.GetByID(ctx, *u.BranchID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.Invalid("branchId", "branch %s does not exist", *u.BranchID)
			}
			return err
		}
	}
	return nil
}

// RegisterUser allocates an account id and stores the user. The password is
// optional; a user without one signs in with an emailed code.
func (s *Service) RegisterUser(ctx context.Context, u *User, password string) error {
	if err := s.validateUser(ctx, u); err != nil {
		return err
	}
	if u.Status == "" {
		u.Status = StatusPending
	}
	if !validUserStatuses[u.Status] {
		return apperr.Invalid("status", "unknown status %q", u.Status)
	}
	u.PasswordHash = ""
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return apperr.Invalid("password", "%s", err.Error())
		}
		u.PasswordHash = hash
	}
	accountID, err := s.ids.Next(ctx, sequence.KindAccountID)
	if err != nil {
		return fmt.Errorf("allocate account id: %w", err)
	}
	u.AccountID = accountID
	u.PhotoURL, u.PhotoID = "", ""
	return s.users.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, f UserFilter, limit, offset int) ([]*User, int, error) {
	if f.Role != "" && !auth.ValidRole(f.Role) {
		return nil, 0, apperr.Invalid("role", "unknown role %q", f.Role)
	}
	if f.Status != "" && !validUserStatuses[f.Status] {
		return nil, 0, apperr.Invalid("status", "unknown status %q", f.Status)
	}
	return s.users.List(ctx, f, limit, offset)
}

// UpdateUser changes profile fields. Account id, status, password and photo
// have their own operations and are kept.
func (s *Service) UpdateUser(ctx context.Context, u *User) (*User, error) {
	if _, err := s.users.GetByID(ctx, u.ID); err != nil {
		return nil, err
	}
	if err := s.validateUser(ctx, u); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, u.ID)
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	prev, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.opts.Revocations.RevokeUser(id.String())
	s.dropImage(ctx, prev.PhotoID)
	return nil
}

// SetStatus moves a user between pending, active and suspended and emails
// them about it. Suspending a user voids the tokens they hold. A failed
// email is logged and does not undo the change.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status string) (*User, error) {
	if !validUserStatuses[status] {
		return nil, apperr.Invalid("status", "unknown status %q", status)
	}
	if err := s.users.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}
	if status != StatusActive {
		s.opts.Revocations.RevokeUser(id.String())
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, notification.TemplateAccountStatus, u, map[string]string{
		"account_id": u.AccountID,
		"status":     status,
	})
	return u, nil
}

func (s *Service) notify(ctx context.Context, template string, u *User, data map[string]string) {
	if s.opts.Mailer == nil {
		return
	}
	data["name"] = u.Name
	if err := s.opts.Mailer.Send(ctx, template, u.Email, data); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("template", template).
			Str("account_id", u.AccountID).Msg("send email")
	}
}

// SetPhoto points the user at a stored image and removes the previous one.
func (s *Service) SetPhoto(ctx context.Context, id uuid.UUID, img *blobstore.Stored) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		s.dropImage(ctx, img.ID)
		return nil, err
	}
	if err := s.users.SetPhoto(ctx, id, img.URL, img.ID); err != nil {
		s.dropImage(ctx, img.ID)
		return nil, err
	}
	if u.PhotoID != img.ID {
		s.dropImage(ctx, u.PhotoID)
	}
	u.PhotoURL, u.PhotoID = img.URL, img.ID
	return u, nil
}

// -- Sign-in --

// Session is returned on a successful sign-in.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

func (s *Service) issue(ctx context.Context, u *User) (*Session, error) {
	if s.opts.Tokens == nil {
		return nil, errors.New("token issuer is not configured")
	}
	subj := auth.Subject{
		UserID:    u.ID.String(),
		TenantID:  db.TenantFromContext(ctx),
		AccountID: u.AccountID,
		Roles:     []string{u.Role},
	}
	if u.BranchID != nil {
		subj.BranchID = u.BranchID.String()
	}
	token, exp, err := s.opts.Tokens.Issue(subj)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// Login signs in with an email address or account id and a password.
func (s *Service) Login(ctx context.Context, login, password string) (*Session, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, apperr.Required("login")
	}
	if password == "" {
		return nil, apperr.Required("password")
	}
	u, err := s.users.GetByLogin(ctx, login)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	if u.Status != StatusActive {
		return nil, ErrAccountInactive
	}
	return s.issue(ctx, u)
}

// Logout revokes the token the request was made with.
func (s *Service) Logout(ctx context.Context) {
	claims := auth.ClaimsFromContext(ctx)
	if claims == nil {
		return
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	s.opts.Revocations.Revoke(claims.ID, exp)
}

// Me returns the user the request is authenticated as.
func (s *Service) Me(ctx context.Context) (*User, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return nil, apperr.NotFound("user")
	}
	return s.users.GetByID(ctx, id)
}

func newCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// RequestOTP emails a one-time code to a registered user. A new request
// replaces any code still outstanding. Unknown and suspended accounts get no
// code and no error, so the endpoint does not reveal who is registered.
func (s *Service) RequestOTP(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperr.Required("email")
	}
	if s.opts.Mailer == nil {
		return errors.New("email delivery is not configured")
	}
	u, err := s.users.GetByLogin(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		zerolog.Ctx(ctx).Debug().Str("email", email).Msg("otp requested for unknown account")
		return nil
	}
	if err != nil {
		return err
	}
	if u.Status == StatusSuspended {
		zerolog.Ctx(ctx).Debug().Str("user_id", u.ID.String()).Msg("otp requested for suspended account")
		return nil
	}
	code, err := newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	if err := s.otps.Save(ctx, &OTP{
		Email:     u.Email,
		CodeHash:  string(hash),
		ExpiresAt: s.now().Add(s.opts.OTPTTL),
	}); err != nil {
		return err
	}
	return s.opts.Mailer.Send(ctx, notification.TemplateOTP, u.Email, map[string]string{
		"name":    u.Name,
		"code":    code,
		"minutes": strconv.Itoa(int(s.opts.OTPTTL.Minutes())),
	})
}

// VerifyOTP exchanges a code for a session. The code is single use. A
// pending user is activated, and newPassword, when given, replaces the
// user's password.
func (s *Service) VerifyOTP(ctx context.Context, email, code, newPassword string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperr.Required("email")
	}
	if code == "" {
		return nil, apperr.Required("code")
	}
	otp, err := s.otps.Get(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if s.now().After(otp.ExpiresAt) || otp.Attempts >= maxOTPAttempts {
		_ = s.otps.Delete(ctx, email)
		return nil, auth.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(code)) != nil {
		if err := s.otps.IncrementAttempts(ctx, email); err != nil {
			return nil, err
		}
		return nil, auth.ErrInvalidCredentials
	}

	var hash string
	if newPassword != "" {
		if hash, err = auth.HashPassword(newPassword); err != nil {
			return nil, apperr.Invalid("newPassword", "%s", err.Error())
		}
	}
	if err := s.otps.Delete(ctx, email); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	u, err := s.users.GetByLogin(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.Status == StatusSuspended {
		return nil, ErrAccountInactive
	}
	if hash != "" {
		if err := s.users.SetPassword(ctx, u.ID, hash); err != nil {
			return nil, err
		}
	}
	if u.Status == StatusPending {
		if err := s.users.SetStatus(ctx, u.ID, StatusActive); err != nil {
			return nil, err
		}
		u.Status = StatusActive
	}
	return s.issue(ctx, u)
}
