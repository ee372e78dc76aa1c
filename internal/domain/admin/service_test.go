package admin

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dentalcare/clinic/internal/platform/auth"
	"github.com/dentalcare/clinic/internal/platform/blobstore"
	"github.com/dentalcare/clinic/internal/platform/db"
	"github.com/dentalcare/clinic/internal/platform/notification"
	"github.com/dentalcare/clinic/internal/platform/sequence"
	"github.com/dentalcare/clinic/pkg/apperr"
)

var testKey = []byte("test-signing-key-0123456789abcdef")

// pngBytes is enough of a PNG for content sniffing.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type testEnv struct {
	svc    *Service
	mail   *notification.MockEmailSender
	images *blobstore.MemoryStore
	revoke *auth.RevocationStore
}

func newTestEnv() *testEnv {
	env := &testEnv{
		mail:   &notification.MockEmailSender{},
		images: blobstore.NewMemoryStore("http://media.test"),
		revoke: auth.NewRevocationStore(),
	}
	gen := sequence.NewGenerator(sequence.NewMemoryStore(), nil)
	env.svc = NewService(NewBranchRepoMem(), NewClinicServiceRepoMem(), NewUserRepoMem(), NewOTPRepoMem(), gen, Options{
		Images:      env.images,
		Mailer:      notification.NewMailer(env.mail, nil, "Smile Dental"),
		Tokens:      auth.NewTokenIssuer("clinic-test", testKey, time.Hour),
		Revocations: env.revoke,
		OTPTTL:      10 * time.Minute,
	})
	return env
}

func (env *testEnv) register(t *testing.T, email, role, password string) *User {
	t.Helper()
	u := &User{Name: "Dr. Meera", Email: email, Role: role}
	if err := env.svc.RegisterUser(context.Background(), u, password); err != nil {
		t.Fatalf("register: %v", err)
	}
	return u
}

var codePattern = regexp.MustCompile(`<strong>(\d{6})</strong>`)

func lastCode(t *testing.T, m *notification.MockEmailSender) string {
	t.Helper()
	calls := m.Calls()
	if len(calls) == 0 {
		t.Fatal("no email sent")
	}
	match := codePattern.FindStringSubmatch(calls[len(calls)-1].Body)
	if match == nil {
		t.Fatalf("no code in body %q", calls[len(calls)-1].Body)
	}
	return match[1]
}

func TestRegisterUser_AllocatesAccountIDs(t *testing.T) {
	env := newTestEnv()
	a := env.register(t, "Meera@Clinic.test", auth.RoleDentist, "")
	b := env.register(t, "front@clinic.test", auth.RoleReceptionist, "")

	if a.AccountID != "DCA00001" || b.AccountID != "DCA00002" {
		t.Errorf("account ids = %q, %q", a.AccountID, b.AccountID)
	}
	if a.Status != StatusPending {
		t.Errorf("status = %q, want pending", a.Status)
	}
	if a.Email != "meera@clinic.test" {
		t.Errorf("email not normalised: %q", a.Email)
	}
}

func TestRegisterUser_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	cases := []struct {
		name  string
		user  User
		pass  string
		field string
	}{
		{"no name", User{Email: "a@b.test", Role: auth.RoleStaff}, "", "name"},
		{"bad email", User{Name: "A", Email: "not-an-email", Role: auth.RoleStaff}, "", "email"},
		{"bad role", User{Name: "A", Email: "a@b.test", Role: "janitor"}, "", "role"},
		{"short password", User{Name: "A", Email: "a@b.test", Role: auth.RoleStaff}, "short", "password"},
		{"bad status", User{Name: "A", Email: "a@b.test", Role: auth.RoleStaff, Status: "retired"}, "", "status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := tc.user
			err := env.svc.RegisterUser(ctx, &u, tc.pass)
			var ve *apperr.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("field = %q, want %q", ve.Field, tc.field)
			}
		})
	}
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	env := newTestEnv()
	env.register(t, "dup@clinic.test", auth.RoleStaff, "")
	err := env.svc.RegisterUser(context.Background(), &User{Name: "B", Email: "DUP@clinic.test", Role: auth.RoleStaff}, "")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv()
	ctx := db.WithTenant(context.Background(), "smile")
	u := env.register(t, "meera@clinic.test", auth.RoleDentist, "s3cret-pass")

	if _, err := env.svc.Login(ctx, "meera@clinic.test", "s3cret-pass"); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("pending user: expected ErrAccountInactive, got %v", err)
	}
	if _, err := env.svc.SetStatus(ctx, u.ID, StatusActive); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.Login(ctx, "meera@clinic.test", "wrong-pass"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := env.svc.Login(ctx, "nobody@clinic.test", "s3cret-pass"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("unknown user: got %v", err)
	}

	sess, err := env.svc.Login(ctx, u.AccountID, "s3cret-pass")
	if err != nil {
		t.Fatalf("login by account id: %v", err)
	}
	claims := &auth.Claims{}
	if _, err := jwt.ParseWithClaims(sess.Token, claims, func(*jwt.Token) (interface{}, error) { return testKey, nil }); err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != u.ID.String() || claims.TenantID != "smile" || claims.AccountID != u.AccountID {
		t.Errorf("claims = %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != auth.RoleDentist {
		t.Errorf("roles = %v", claims.Roles)
	}
}

func TestSetStatus_EmailsUser(t *testing.T) {
	env := newTestEnv()
	u := env.register(t, "meera@clinic.test", auth.RoleDentist, "")

	got, err := env.svc.SetStatus(context.Background(), u.ID, StatusActive)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusActive {
		t.Errorf("status = %q", got.Status)
	}
	calls := env.mail.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 email, got %d", len(calls))
	}
	if calls[0].To != "meera@clinic.test" || !strings.Contains(calls[0].Subject, "active") {
		t.Errorf("email = %+v", calls[0])
	}
	if !strings.Contains(calls[0].Body, u.AccountID) {
		t.Errorf("body missing account id: %q", calls[0].Body)
	}
}

func TestSetStatus_MailFailureDoesNotFail(t *testing.T) {
	env := newTestEnv()
	env.mail.ShouldFail = true
	env.mail.FailError = "smtp down"
	u := env.register(t, "meera@clinic.test", auth.RoleDentist, "")

	if _, err := env.svc.SetStatus(context.Background(), u.ID, StatusSuspended); err != nil {
		t.Fatalf("expected status change to succeed, got %v", err)
	}
	got, _ := env.svc.GetUser(context.Background(), u.ID)
	if got.Status != StatusSuspended {
		t.Errorf("status = %q", got.Status)
	}
}

func TestSetStatus_Invalid(t *testing.T) {
	env := newTestEnv()
	u := env.register(t, "meera@clinic.test", auth.RoleDentist, "")
	if _, err := env.svc.SetStatus(context.Background(), u.ID, "gone"); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestOTP_ActivatesAndSetsPassword(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	u := env.register(t, "meera@clinic.test", auth.RoleDentist, "")

	if err := env.svc.RequestOTP(ctx, "Meera@clinic.test"); err != nil {
		t.Fatalf("request: %v", err)
	}
	code := lastCode(t, env.mail)

	sess, err := env.svc.VerifyOTP(ctx, "meera@clinic.test", code, "brand-new-pass")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sess.Token == "" || sess.User.Status != StatusActive {
		t.Errorf("session = %+v", sess)
	}

	// single use
	if _, err := env.svc.VerifyOTP(ctx, "meera@clinic.test", code, ""); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("reused code: got %v", err)
	}
	if _, err := env.svc.Login(ctx, u.Email, "brand-new-pass"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

func TestOTP_WrongCodeAndLockout(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.register(t, "meera@clinic.test", auth.RoleDentist, "")
	if err := env.svc.RequestOTP(ctx, "meera@clinic.test"); err != nil {
		t.Fatal(err)
	}
	code := lastCode(t, env.mail)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < maxOTPAttempts; i++ {
		if _, err := env.svc.VerifyOTP(ctx, "meera@clinic.test", wrong, ""); !errors.Is(err, auth.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v", i, err)
		}
	}
	if _, err := env.svc.VerifyOTP(ctx, "meera@clinic.test", code, ""); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected lockout after %d attempts, got %v", maxOTPAttempts, err)
	}
}

func TestOTP_Expired(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.register(t, "meera@clinic.test", auth.RoleDentist, "")
	if err := env.svc.RequestOTP(ctx, "meera@clinic.test"); err != nil {
		t.Fatal(err)
	}
	code := lastCode(t, env.mail)

	env.svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	if _, err := env.svc.VerifyOTP(ctx, "meera@clinic.test", code, ""); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected expired code to fail, got %v", err)
	}
}

func TestOTP_UnknownAndSuspendedGetNoCode(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	if err := env.svc.RequestOTP(ctx, "ghost@clinic.test"); err != nil {
		t.Errorf("unknown email: expected no error, got %v", err)
	}
	u := env.register(t, "meera@clinic.test", auth.RoleDentist, "")
	env.svc.SetStatus(ctx, u.ID, StatusSuspended)
	sent := len(env.mail.Calls())
	if err := env.svc.RequestOTP(ctx, u.Email); err != nil {
		t.Errorf("suspended: expected no error, got %v", err)
	}
	if got := len(env.mail.Calls()); got != sent {
		t.Errorf("expected no code mailed, got %d new emails", got-sent)
	}
	for _, c := range env.mail.Calls() {
		if c.To == "ghost@clinic.test" {
			t.Error("code mailed to unknown address")
		}
	}
}

func TestOTP_NoMailerStoresNoCode(t *testing.T) {
	users, otps := NewUserRepoMem(), NewOTPRepoMem()
	gen := sequence.NewGenerator(sequence.NewMemoryStore(), nil)
	svc := NewService(NewBranchRepoMem(), NewClinicServiceRepoMem(), users, otps, gen, Options{})
	ctx := context.Background()

	u := &User{Name: "Dr. Meera", Email: "meera@clinic.test", Role: auth.RoleDentist}
	if err := svc.RegisterUser(ctx, u, ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.RequestOTP(ctx, u.Email); err == nil {
		t.Fatal("expected an error without a mailer")
	}
	if _, err := otps.Get(ctx, u.Email); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected no stored code, got %v", err)
	}
}

func TestSetPhoto_ReplacesImage(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	u := env.register(t, "meera@clinic.test", auth.RoleDentist, "")

	first, err := env.images.Upload(ctx, blobstore.Image{Purpose: "photo"}, bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.SetPhoto(ctx, u.ID, first); err != nil {
		t.Fatal(err)
	}
	second, _ := env.images.Upload(ctx, blobstore.Image{Purpose: "photo"}, bytes.NewReader(pngBytes))
	got, err := env.svc.SetPhoto(ctx, u.ID, second)
	if err != nil {
		t.Fatal(err)
	}
	if got.PhotoURL != second.URL {
		t.Errorf("photoUrl = %q, want %q", got.PhotoURL, second.URL)
	}
	if _, _, err := env.images.Open(ctx, first.ID); !errors.Is(err, blobstore.ErrImageNotFound) {
		t.Errorf("old photo should be deleted, got %v", err)
	}
}

func TestBranchLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	b := &Branch{Name: "Indiranagar", Code: "ind"}
	if err := env.svc.CreateBranch(ctx, b); err != nil {
		t.Fatal(err)
	}
	if b.Code != "IND" || b.Active == nil || !*b.Active {
		t.Errorf("branch = %+v", b)
	}
	if err := env.svc.CreateBranch(ctx, &Branch{Name: "Other", Code: "IND"}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate code: got %v", err)
	}

	img, _ := env.images.Upload(ctx, blobstore.Image{Purpose: "letterhead"}, bytes.NewReader(pngBytes))
	if _, err := env.svc.SetLetterhead(ctx, b.ID, img); err != nil {
		t.Fatal(err)
	}

	// letterhead survives a profile update
	upd := &Branch{ID: b.ID, Name: "Indiranagar Main", Code: "IND", LetterheadURL: "http://elsewhere"}
	if err := env.svc.UpdateBranch(ctx, upd); err != nil {
		t.Fatal(err)
	}
	if upd.LetterheadURL != img.URL {
		t.Errorf("letterheadUrl = %q", upd.LetterheadURL)
	}

	if err := env.svc.DeleteBranch(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, _, err := env.images.Open(ctx, img.ID); !errors.Is(err, blobstore.ErrImageNotFound) {
		t.Errorf("letterhead should be deleted with the branch")
	}
}

func TestRegisterUser_UnknownBranch(t *testing.T) {
	env := newTestEnv()
	ghost := uuid.New()
	err := env.svc.RegisterUser(context.Background(),
		&User{Name: "A", Email: "a@b.test", Role: auth.RoleStaff, BranchID: &ghost}, "")
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) || ve.Field != "branchId" {
		t.Fatalf("expected branchId validation error, got %v", err)
	}
}

func TestClinicServiceValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	if err := env.svc.CreateClinicService(ctx, &ClinicService{Name: "Scaling", Price: -1}); !apperr.IsValidation(err) {
		t.Errorf("negative price: got %v", err)
	}
	cs := &ClinicService{Name: "Scaling", Code: "scl", Price: 800, DurationMinutes: 30}
	if err := env.svc.CreateClinicService(ctx, cs); err != nil {
		t.Fatal(err)
	}
	items, total, err := env.svc.ListClinicServices(ctx, true, 20, 0)
	if err != nil || total != 1 || items[0].Code != "SCL" {
		t.Errorf("list = %v, %d, %v", items, total, err)
	}
}

func TestDeleteUser_RevokesTokens(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	u := env.register(t, "meera@clinic.test", auth.RoleDentist, "s3cret-pass")
	env.svc.SetStatus(ctx, u.ID, StatusActive)
	sess, err := env.svc.Login(ctx, u.Email, "s3cret-pass")
	if err != nil {
		t.Fatal(err)
	}
	claims := &auth.Claims{}
	jwt.ParseWithClaims(sess.Token, claims, func(*jwt.Token) (interface{}, error) { return testKey, nil })

	if err := env.svc.DeleteUser(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if !env.revoke.IsRevoked(claims.ID, u.ID.String(), claims.IssuedAt) {
		t.Error("token should be revoked after delete")
	}
}
