package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"nestodo/app/repository"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	done  chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{done: make(chan struct{}, 8)}
}

func (n *recordingNotifier) Welcome(ctx context.Context, email, name string) error {
	n.mu.Lock()
	n.calls = append(n.calls, email+"|"+name)
	n.mu.Unlock()
	n.done <- struct{}{}
	return errors.New("provider down")
}

func newAuth(t *testing.T) (*AuthService, *recordingNotifier) {
	t.Helper()
	n := newRecordingNotifier()
	svc := NewAuthService(repository.NewMemoryRepository(), n, AuthConfig{
		Secret:     []byte("test-secret"),
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	return svc, n
}

const goodPassword = "Secret123"

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, n := newAuth(t)

	user, err := svc.Signup(ctx, " ada@example.com ", goodPassword, "Ada")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if user.Email != "ada@example.com" || user.PasswordHash == goodPassword {
		t.Errorf("Signup() user = %+v", user)
	}

	// A failing notifier must not fail signup.
	select {
	case <-n.done:
	case <-time.After(2 * time.Second):
		t.Fatal("welcome notification not dispatched")
	}

	session, err := svc.Login(ctx, "ADA@example.com", goodPassword)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	got, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Authenticate() = %s, want %s", got.ID, user.ID)
	}
}

func TestSignupDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, n := newAuth(t)
	if _, err := svc.Signup(ctx, "ada@example.com", goodPassword, ""); err != nil {
		t.Fatal(err)
	}
	<-n.done
	if _, err := svc.Signup(ctx, "ada@example.com", goodPassword, ""); !errors.Is(err, ErrAccountExists) {
		t.Errorf("Signup(duplicate) error = %v, want ErrAccountExists", err)
	}
}

func TestSignupValidation(t *testing.T) {
	tests := []struct {
		email, password, field, msg string
	}{
		{"", goodPassword, "email", "Email is required"},
		{"not-an-email", goodPassword, "email", "Please enter a valid email address"},
		{"a@b.co", "", "password", "Password is required"},
		{"a@b.co", "Ab1", "password", "Password must be at least 8 characters"},
		{"a@b.co", "abcdefg1", "password", "Password must contain at least one uppercase letter"},
		{"a@b.co", "ABCDEFG1", "password", "Password must contain at least one lowercase letter"},
		{"a@b.co", "Abcdefgh", "password", "Password must contain at least one number"},
	}
	svc, _ := newAuth(t)
	for _, tt := range tests {
		_, err := svc.Signup(context.Background(), tt.email, tt.password, "")
		var fe FieldErrors
		if !errors.As(err, &fe) || !errors.Is(err, ErrValidation) {
			t.Errorf("Signup(%q, %q) error = %v, want FieldErrors", tt.email, tt.password, err)
			continue
		}
		if fe[tt.field] != tt.msg {
			t.Errorf("Signup(%q, %q) %s = %q, want %q", tt.email, tt.password, tt.field, fe[tt.field], tt.msg)
		}
	}
}

func TestValidateSignupForm(t *testing.T) {
	err := ValidateSignupForm("a@b.co", goodPassword, "Other123")
	fe, ok := err.(FieldErrors)
	if !ok || fe["confirmPassword"] != "Passwords do not match" {
		t.Errorf("ValidateSignupForm() = %v", err)
	}
	if err := ValidateSignupForm("a@b.co", goodPassword, goodPassword); err != nil {
		t.Errorf("ValidateSignupForm(valid) = %v", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	ctx := context.Background()
	svc, n := newAuth(t)
	if _, err := svc.Signup(ctx, "ada@example.com", goodPassword, ""); err != nil {
		t.Fatal(err)
	}
	<-n.done

	for _, tc := range []struct{ email, password string }{
		{"ada@example.com", "Wrong1234"},
		{"bob@example.com", goodPassword},
	} {
		if _, err := svc.Login(ctx, tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%s) error = %v, want ErrInvalidCredentials", tc.email, err)
		}
	}
	if _, err := svc.Login(ctx, "", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("Login(empty) error = %v, want ErrValidation", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc, n := newAuth(t)
	svc.Signup(ctx, "ada@example.com", goodPassword, "")
	<-n.done
	session, err := svc.Login(ctx, "ada@example.com", goodPassword)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Logout(session.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Authenticate(revoked) error = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	svc, n := newAuth(t)
	svc.Signup(ctx, "ada@example.com", goodPassword, "")
	<-n.done
	session, _ := svc.Login(ctx, "ada@example.com", goodPassword)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Authenticate(expired) error = %v", err)
	}
	for _, tok := range []string{"", "garbage", session.Token + "x"} {
		if _, err := svc.Authenticate(ctx, tok); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("Authenticate(%q) error = %v", tok, err)
		}
	}
}

func TestTodoServiceCreate(t *testing.T) {
	ctx := context.Background()
	svc := NewTodoService(repository.NewMemoryRepository())

	if _, err := svc.Create(ctx, "u1", nil, "   "); !errors.Is(err, ErrValidation) {
		t.Errorf("Create(blank) error = %v, want ErrValidation", err)
	}

	root, err := svc.Create(ctx, "u1", nil, "  Parent Task ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if root.ID == "" || root.Title != "Parent Task" || root.ParentID != nil || root.OwnerID != "u1" {
		t.Errorf("Create() = %+v", root)
	}

	empty := ""
	if again, err := svc.Create(ctx, "u1", &empty, "Also root"); err != nil || again.ParentID != nil {
		t.Errorf("Create(empty parent) = %+v, %v", again, err)
	}

	child, err := svc.Create(ctx, "u1", &root.ID, "Child")
	if err != nil || child.ParentID == nil || *child.ParentID != root.ID {
		t.Fatalf("Create(child) = %+v, %v", child, err)
	}
	if _, err := svc.Create(ctx, "u2", &root.ID, "Sneaky"); !errors.Is(err, repository.ErrParentNotFound) {
		t.Errorf("Create(foreign parent) error = %v, want ErrParentNotFound", err)
	}

	todos, _ := svc.List(ctx, "u1")
	if len(todos) != 3 {
		t.Errorf("List() len = %d, want 3", len(todos))
	}
}

func TestFieldErrorsMessage(t *testing.T) {
	fe := FieldErrors{"password": "b", "email": "a"}
	if got := fe.Error(); got != "email: a; password: b" {
		t.Errorf("Error() = %q", got)
	}
}
